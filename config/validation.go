package config

import (
	"net/url"
	"regexp"
	"strings"
)

var validPrivateKeyRegex = regexp.MustCompile(`^[0-9a-fA-F]{64}$`)

// IsValidPrivateKey checks for 32 hex encoded bytes with an optional 0x prefix
func IsValidPrivateKey(s string) bool {
	s = strings.TrimPrefix(strings.TrimSpace(s), "0x")
	return validPrivateKeyRegex.MatchString(s)
}

// IsValidRPCURL accepts http(s) and ws(s) endpoints
func IsValidRPCURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil || u.Host == "" {
		return false
	}
	switch u.Scheme {
	case "http", "https", "ws", "wss":
		return true
	}
	return false
}
