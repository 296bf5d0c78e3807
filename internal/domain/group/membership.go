package group

import "github.com/google/uuid"

// User is a directory user record
type User struct {
	ID        uuid.UUID
	Email     string
	FirstName string
	LastName  string
	Comment   string
}

// UserRef identifies a user without the full record
type UserRef struct {
	ID uuid.UUID
}

// Membership ties a user to a group through a role subgroup. Membership is
// never direct: the user belongs to the role subgroup, which belongs to the
// group.
type Membership struct {
	User           User
	Role           string
	RoleSubgroupID uuid.UUID
}

// Role is a realm role that can be bound to a role subgroup
type Role struct {
	ID   uuid.UUID
	Name string
}
