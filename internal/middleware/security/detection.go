package security

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"

	applog "wonchon/internal/log"
	"wonchon/internal/metrics"
)

var probePatterns = []string{
	"../", "..\\", ".env", ".git", ".ssh", "wp-admin", "phpmyadmin",
	"etc/passwd", "cmd.exe", "<script", "javascript:", "union select",
}

var scannerAgents = []string{"sqlmap", "nmap", "nikto", "gobuster", "dirb", "masscan"}

// Detector resolves client IPs and flags probing requests.
type Detector struct {
	trustedProxies []*net.IPNet
	logger         *applog.Logger
}

// NewDetector trusts loopback and private networks to set forwarding
// headers.
func NewDetector(logger *applog.Logger) *Detector {
	if logger == nil {
		logger = applog.New(applog.Config{Handler: slog.Default().Handler(), Component: applog.ComponentSecurity})
	}
	return &Detector{
		trustedProxies: []*net.IPNet{
			mustParseCIDR("127.0.0.0/8"),
			mustParseCIDR("::1/128"),
			mustParseCIDR("10.0.0.0/8"),
			mustParseCIDR("172.16.0.0/12"),
			mustParseCIDR("192.168.0.0/16"),
		},
		logger: logger,
	}
}

func mustParseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// AddTrustedProxy adds a trusted proxy network
func (d *Detector) AddTrustedProxy(cidr string) error {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
	}
	d.trustedProxies = append(d.trustedProxies, network)
	return nil
}

// ClientIP returns the connecting address, or the first forwarded address
// when the connection comes from a trusted proxy.
func (d *Detector) ClientIP(r *http.Request) string {
	directIP, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		directIP = r.RemoteAddr
	}

	parsed := net.ParseIP(directIP)
	if parsed == nil || !d.isTrustedProxy(parsed) {
		return directIP
	}

	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(xri) != nil {
		return xri
	}
	return directIP
}

func (d *Detector) isTrustedProxy(ip net.IP) bool {
	for _, network := range d.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// Suspicious returns a short reason when r looks like a probe, or "".
func (d *Detector) Suspicious(r *http.Request) string {
	switch r.Method {
	case "TRACE", "TRACK", "DEBUG", "CONNECT":
		return "method"
	}
	if len(r.URL.RequestURI()) > 2048 {
		return "long_uri"
	}

	target := strings.ToLower(r.URL.Path + "?" + r.URL.RawQuery)
	for _, p := range probePatterns {
		if strings.Contains(target, p) {
			return "path"
		}
	}

	ua := strings.ToLower(r.Header.Get("User-Agent"))
	for _, a := range scannerAgents {
		if strings.Contains(ua, a) {
			return "scanner"
		}
	}
	return ""
}

// Middleware logs flagged requests and rejects those using diagnostic
// methods. Other flagged requests continue to the router, which answers 404.
func (d *Detector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reason := d.Suspicious(r)
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}

		metrics.SuspiciousRequests.WithLabelValues(reason).Inc()
		d.logger.WarnContext(r.Context(), "Suspicious request",
			applog.FieldClientIP, d.ClientIP(r),
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldUserAgent, r.UserAgent(),
			"reason", reason)

		if reason == "method" {
			http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
			return
		}
		next.ServeHTTP(w, r)
	})
}
