package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"budgetbuddy/internal/log"
)

// DefaultTrustedProxies are the networks whose X-Forwarded-For is believed.
var DefaultTrustedProxies = []string{
	"127.0.0.0/8",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
}

var suspiciousPatterns = []string{
	"../", "..\\", ".env", "wp-admin", "phpmyadmin",
	"admin.php", "config.php", ".git", ".ssh",
	"eval(", "javascript:", "<script", "union select",
	"etc/passwd", "cmd.exe",
}

var suspiciousAgents = []string{
	"sqlmap", "nmap", "nikto", "gobuster", "dirb", "scanner",
}

// DetectionMetrics tracks security detection events
type DetectionMetrics struct {
	SuspiciousRequests int64
}

// Detector flags requests that look like probes. It only logs; the API
// answers them like any other request.
type Detector struct {
	suspicious     int64
	trustedProxies []string
}

func NewDetector() *Detector {
	return &Detector{trustedProxies: append([]string(nil), DefaultTrustedProxies...)}
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	if _, _, err := net.ParseCIDR(cidr); err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, cidr)
	return nil
}

// TrustedProxies is meant for gin.Engine.SetTrustedProxies.
func (d *Detector) TrustedProxies() []string {
	return append([]string(nil), d.trustedProxies...)
}

// IsSuspicious analyzes request patterns for potential threats
func (d *Detector) IsSuspicious(r *http.Request) (bool, string) {
	path := strings.ToLower(r.URL.Path)
	query := strings.ToLower(r.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(path, pattern) || strings.Contains(query, pattern) {
			return true, "pattern " + pattern
		}
	}

	userAgent := strings.ToLower(r.UserAgent())
	for _, agent := range suspiciousAgents {
		if strings.Contains(userAgent, agent) {
			return true, "user agent " + agent
		}
	}

	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return true, "method " + r.Method
	}

	if len(r.URL.String()) > 2048 {
		return true, "long url"
	}
	if strings.Count(r.Header.Get("X-Forwarded-For"), ",") > 5 {
		return true, "forwarding chain"
	}
	return false, ""
}

// Middleware logs suspicious requests and lets them through.
func (d *Detector) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ok, reason := d.IsSuspicious(c.Request); ok {
			atomic.AddInt64(&d.suspicious, 1)
			slog.WarnContext(c.Request.Context(), "Suspicious request detected",
				log.FieldComponent, log.ComponentHTTP,
				log.FieldClientIP, c.ClientIP(),
				log.FieldMethod, c.Request.Method,
				log.FieldPath, c.Request.URL.Path,
				"reason", reason)
		}
		c.Next()
	}
}

func (d *Detector) GetMetrics() DetectionMetrics {
	return DetectionMetrics{SuspiciousRequests: atomic.LoadInt64(&d.suspicious)}
}
