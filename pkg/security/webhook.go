// pkg/security/webhook.go
package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"net"
	"net/http"
	"strings"
)

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrForbiddenOrigin  = errors.New("webhook origin is not allowed")
)

// Sign returns the lowercase hex HMAC of body keyed by secret.
func Sign(newHash func() hash.Hash, secret, body []byte) string {
	mac := hmac.New(newHash, secret)
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyHMACSHA512 checks a hex HMAC-SHA512 signature over the raw body.
func VerifyHMACSHA512(secret string, body []byte, signature string) error {
	return verify(sha512.New, secret, body, signature)
}

// VerifyHMACSHA256 checks a hex HMAC-SHA256 signature over the raw body.
func VerifyHMACSHA256(secret string, body []byte, signature string) error {
	return verify(sha256.New, secret, body, signature)
}

func verify(newHash func() hash.Hash, secret string, body []byte, signature string) error {
	if secret == "" || signature == "" {
		return ErrInvalidSignature
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(newHash, []byte(secret))
	mac.Write(body)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrInvalidSignature
	}
	return nil
}

// ClientIP returns the first hop of X-Forwarded-For, falling back to the
// host part of RemoteAddr.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// IPAllowList is a fixed set of addresses allowed to call a webhook.
type IPAllowList struct {
	ips map[string]struct{}
}

func NewIPAllowList(ips []string) *IPAllowList {
	l := &IPAllowList{ips: make(map[string]struct{}, len(ips))}
	for _, ip := range ips {
		ip = strings.TrimSpace(ip)
		if parsed := net.ParseIP(ip); parsed != nil {
			l.ips[parsed.String()] = struct{}{}
		}
	}
	return l
}

func (l *IPAllowList) Allowed(ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	_, ok := l.ips[parsed.String()]
	return ok
}
