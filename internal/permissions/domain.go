package permissions

// Permission grants an action on a module. The module field is a free string:
// it matches a Module name by convention, without a foreign key.
type Permission struct {
	ID     int64  `json:"id"`
	Module string `json:"module"`
	Action string `json:"action"`
}
