package auth

import "time"

// User is an account loaded for credential verification. It carries the
// password hash and never crosses the HTTP boundary.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}
