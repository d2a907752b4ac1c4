package roles

import "time"

// Role is a pure aggregation container for permissions.
type Role struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}
