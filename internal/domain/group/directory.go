package group

import (
	"context"

	"github.com/google/uuid"
)

// Directory is the hierarchical group store the core consumes. It is owned
// by an external collaborator (an identity provider or a relational
// reference implementation); the core only depends on this contract.
//
// Implementations return shared.ErrNotFound-compatible domain errors for
// lookup misses and shared.ErrAlreadyExists-compatible errors for name
// conflicts, so callers can branch on a closed error set instead of
// inspecting provider responses.
type Directory interface {
	// FindGroupByID returns the group with the given id
	FindGroupByID(ctx context.Context, id uuid.UUID) (Group, error)

	// FindGroupByName returns the group with the given (globally unique) name
	FindGroupByName(ctx context.Context, name string) (Group, error)

	// ListGroups returns every group in the directory, flattened. Paths are
	// populated so the tree can be rebuilt in memory with one pass.
	ListGroups(ctx context.Context) ([]Group, error)

	// CreateGroup stores a new group and returns it with its id assigned
	CreateGroup(ctx context.Context, g Group) (Group, error)

	// UpdateGroup patches a group's name and attributes
	UpdateGroup(ctx context.Context, id uuid.UUID, patch Patch) (Group, error)

	// DeleteGroup removes a group; children are the directory's concern
	DeleteGroup(ctx context.Context, id uuid.UUID) error

	// SetParent moves childID under parentID
	SetParent(ctx context.Context, childID, parentID uuid.UUID) error

	// ListGroupMembers returns the direct member refs of a group
	ListGroupMembers(ctx context.Context, id uuid.UUID) ([]UserRef, error)

	// AddMember attaches a user to a group
	AddMember(ctx context.Context, userID, groupID uuid.UUID) error

	// RemoveMember detaches a user from a group
	RemoveMember(ctx context.Context, userID, groupID uuid.UUID) error

	// FindUser resolves a member ref to the full user record
	FindUser(ctx context.Context, id uuid.UUID) (User, error)

	// FindRoleByName looks up a realm role
	FindRoleByName(ctx context.Context, name string) (Role, error)

	// BindRealmRole binds a realm role to a group
	BindRealmRole(ctx context.Context, groupID uuid.UUID, role Role) error
}

// Patch is a partial group update. Nil fields are left untouched. A non-nil
// Attributes carries the complete reserved-key view: the directory replaces
// reserved keys from it, clears reserved keys it omits, and preserves any
// non-reserved keys it already stores.
type Patch struct {
	Name       *string
	Attributes Attributes
}
