package groups

import "time"

// Group is a pure aggregation container linking users to roles.
type Group struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}

// Member is a user belonging to a group.
type Member struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
}

// RoleRef is a role assigned to a group.
type RoleRef struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}
