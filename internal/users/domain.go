package users

import "time"

// User represents a managed account. The credential hash never leaves the
// repository layer in API responses.
type User struct {
	ID        int64     `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"-"`
}

// GroupRef is a group a user belongs to.
type GroupRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
