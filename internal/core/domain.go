package core

import (
	"errors"
	"strings"
	"time"
)

const (
	IconHome        Icon = "Home"
	IconShoppingBag Icon = "ShoppingBag"
	IconCar         Icon = "Car"
	IconCoffee      Icon = "Coffee"
	IconSmartphone  Icon = "Smartphone"
	IconDollarSign  Icon = "DollarSign"
)

const (
	DefaultColor = "#3b82f6"
	DefaultIcon  = IconCoffee

	maxNameLength = 100
)

type (
	Icon string

	Date struct {
		time.Time
	}

	// Owner identifies the user a ledger belongs to and where their
	// notifications are delivered.
	Owner struct {
		ID    string
		Email string
	}

	Category struct {
		ID        string
		OwnerID   string
		Name      string
		Budget    Money
		Color     string
		Icon      Icon
		Spent     Money // derived from the transaction ledger
		CreatedAt time.Time
	}

	Transaction struct {
		ID         string
		OwnerID    string
		Name       string
		Amount     Money  // positive is income, negative is expense
		CategoryID string // empty means uncategorized
		Date       Date
		CreatedAt  time.Time
	}

	CategoryInput struct {
		Name   string
		Budget Money
		Color  string
		Icon   Icon
	}

	// CategoryUpdate carries a partial category change. Nil fields are left
	// untouched.
	CategoryUpdate struct {
		Name   *string
		Budget *Money
		Color  *string
		Icon   *Icon
		Spent  *Money
	}

	TransactionInput struct {
		Name       string
		Amount     Money
		CategoryID string
		Date       Date
	}

	TransactionUpdate struct {
		Name       *string
		Amount     *Money
		CategoryID *string
		Date       *Date
	}
)

var (
	ErrInvalidDate    = errors.New("invalid date")
	ErrInvalidAmount  = errors.New("invalid amount")
	ErrAmountTooLarge = errors.New("amount too large")
	ErrNegativeBudget = errors.New("budget cannot be negative")
	ErrNegativeSpent  = errors.New("spent cannot be negative")
	ErrEmptyName      = errors.New("empty name")
	ErrNameTooLong    = errors.New("name too long (max 100 characters)")
	ErrInvalidColor   = errors.New("invalid color")
	ErrInvalidIcon    = errors.New("invalid icon")
	ErrEmptyOwner     = errors.New("empty owner id")
	ErrEmptyUpdate    = errors.New("update has no fields")
)

// Icons returns every icon tag a category may carry.
func Icons() []Icon {
	return []Icon{IconHome, IconShoppingBag, IconCar, IconCoffee, IconSmartphone, IconDollarSign}
}

func (i Icon) IsValid() bool {
	for _, known := range Icons() {
		if i == known {
			return true
		}
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in UTC.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return Date{}, ErrInvalidDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(time.DateOnly)
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// Period returns the YYYY-MM budget period the date falls in.
func (d Date) Period() string {
	return d.Format("2006-01")
}

func (o Owner) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return ErrEmptyOwner
	}
	return nil
}

func (t Transaction) IsExpense() bool { return t.Amount.IsNegative() }

func (t Transaction) IsIncome() bool { return t.Amount.IsPositive() }

func (t Transaction) HasCategory() bool { return t.CategoryID != "" }

// WithDefaults fills in the color and icon a new category gets when the
// caller leaves them blank.
func (in CategoryInput) WithDefaults() CategoryInput {
	in.Name = strings.TrimSpace(in.Name)
	in.Color = strings.TrimSpace(in.Color)
	if in.Color == "" {
		in.Color = DefaultColor
	}
	if in.Icon == "" {
		in.Icon = DefaultIcon
	}
	return in
}

func (in CategoryInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if in.Budget.IsNegative() {
		return ErrNegativeBudget
	}
	if !validColor(in.Color) {
		return ErrInvalidColor
	}
	if !in.Icon.IsValid() {
		return ErrInvalidIcon
	}
	return nil
}

func (u CategoryUpdate) IsEmpty() bool {
	return u.Name == nil && u.Budget == nil && u.Color == nil && u.Icon == nil && u.Spent == nil
}

func (u CategoryUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return err
		}
	}
	if u.Budget != nil && u.Budget.IsNegative() {
		return ErrNegativeBudget
	}
	if u.Color != nil && !validColor(*u.Color) {
		return ErrInvalidColor
	}
	if u.Icon != nil && !u.Icon.IsValid() {
		return ErrInvalidIcon
	}
	if u.Spent != nil && u.Spent.IsNegative() {
		return ErrNegativeSpent
	}
	return nil
}

// Apply copies the set fields of u onto c.
func (u CategoryUpdate) Apply(c *Category) {
	if u.Name != nil {
		c.Name = strings.TrimSpace(*u.Name)
	}
	if u.Budget != nil {
		c.Budget = *u.Budget
	}
	if u.Color != nil {
		c.Color = *u.Color
	}
	if u.Icon != nil {
		c.Icon = *u.Icon
	}
	if u.Spent != nil {
		c.Spent = *u.Spent
	}
}

func (in TransactionInput) Validate() error {
	if err := validateName(in.Name); err != nil {
		return err
	}
	if err := in.Date.Validate(); err != nil {
		return err
	}
	return in.Amount.checkRange()
}

func (u TransactionUpdate) IsEmpty() bool {
	return u.Name == nil && u.Amount == nil && u.CategoryID == nil && u.Date == nil
}

func (u TransactionUpdate) Validate() error {
	if u.IsEmpty() {
		return ErrEmptyUpdate
	}
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return err
		}
	}
	if u.Date != nil {
		if err := u.Date.Validate(); err != nil {
			return err
		}
	}
	if u.Amount != nil {
		return u.Amount.checkRange()
	}
	return nil
}

func (u TransactionUpdate) Apply(t *Transaction) {
	if u.Name != nil {
		t.Name = strings.TrimSpace(*u.Name)
	}
	if u.Amount != nil {
		t.Amount = *u.Amount
	}
	if u.CategoryID != nil {
		t.CategoryID = *u.CategoryID
	}
	if u.Date != nil {
		t.Date = *u.Date
	}
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if len(name) > maxNameLength {
		return ErrNameTooLong
	}
	return nil
}

// validColor accepts #rgb and #rrggbb hex colors.
func validColor(c string) bool {
	if len(c) != 4 && len(c) != 7 {
		return false
	}
	if c[0] != '#' {
		return false
	}
	for _, r := range c[1:] {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return false
		}
	}
	return true
}
