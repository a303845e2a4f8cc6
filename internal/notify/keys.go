package notify

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const keyPrefix = "notification"

// ResetPolicy controls when budget threshold alerts re-arm.
type ResetPolicy string

const (
	// ResetNever keeps a threshold notified until its entry is purged or
	// explicitly reset.
	ResetNever ResetPolicy = "never"
	// ResetMonthly scopes threshold keys to the calendar month, so every
	// threshold can fire once per month.
	ResetMonthly ResetPolicy = "monthly"
)

func ParseResetPolicy(s string) (ResetPolicy, error) {
	switch p := ResetPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "", ResetNever:
		return ResetNever, nil
	case ResetMonthly:
		return ResetMonthly, nil
	default:
		return "", fmt.Errorf("unknown reset policy %q", s)
	}
}

// OwnerKeyPrefix is the prefix shared by every dedup key of an owner. The
// owner ID is escaped so no owner's prefix can match another owner's keys.
func OwnerKeyPrefix(ownerID string) string {
	return keyPrefix + ":" + url.QueryEscape(ownerID) + ":"
}

// BudgetThresholdKey identifies a threshold alert for a category. Under the
// monthly policy the key carries the YYYY-MM period of now.
func BudgetThresholdKey(ownerID, categoryID string, threshold int, policy ResetPolicy, now time.Time) string {
	key := OwnerKeyPrefix(ownerID) + string(KindBudgetThreshold) + ":" + categoryID + ":" + strconv.Itoa(threshold)
	if policy == ResetMonthly {
		key += ":" + now.UTC().Format("2006-01")
	}
	return key
}

func LargeTransactionKey(ownerID, transactionID string) string {
	return OwnerKeyPrefix(ownerID) + string(KindLargeTransaction) + ":" + transactionID
}
