// internal/domain/user.go
package domain

import "strings"

// User is owned by the account service; this service only reads it.
type User struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	CryptoAddress string `json:"crypto_address,omitempty"`
	IsActive      bool   `json:"is_active"`
	IsVerified    bool   `json:"is_verified"`
}

func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
