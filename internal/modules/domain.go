package modules

import "time"

// Module is a named resource domain. Permissions reference modules by name
// only; there is deliberately no foreign key from permissions to this table.
type Module struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"-"`
}
