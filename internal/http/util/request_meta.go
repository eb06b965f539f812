package util

import (
	"net"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// ClientIP returns the originating client address: the first X-Forwarded-For
// entry, then X-Real-Ip, then the socket peer.
func ClientIP(c *fiber.Ctx) string {
	if xff := c.Get(fiber.HeaderXForwardedFor); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(c.Get("X-Real-Ip")); ip != "" {
		return ip
	}
	return c.IP()
}

// ClientPort returns the socket peer port, else X-Forwarded-Port.
func ClientPort(c *fiber.Ctx) string {
	if addr := c.Context().RemoteAddr(); addr != nil {
		if _, port, err := net.SplitHostPort(addr.String()); err == nil && port != "" && port != "0" {
			return port
		}
	}
	return strings.TrimSpace(c.Get("X-Forwarded-Port"))
}

// BaseURL returns the configured public base URL, or scheme://host of the request.
func BaseURL(c *fiber.Ctx, configured string) string {
	if configured != "" {
		return strings.TrimRight(configured, "/")
	}
	return c.BaseURL()
}

// IsHTTPURL reports whether raw is an absolute http or https URL.
func IsHTTPURL(raw string) bool {
	if raw == "" {
		return false
	}
	lower := strings.ToLower(raw)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return false
	}
	host := raw[strings.Index(raw, "//")+2:]
	if i := strings.IndexAny(host, "/?#"); i >= 0 {
		host = host[:i]
	}
	return host != ""
}
