package group

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/wintercreative/lagoon/internal/domain/shared"
)

// Kind designates what a group is used for. It is decoded once from the
// directory's attribute bag and never re-parsed downstream.
type Kind string

const (
	// KindPlain is a regular group with no special semantics
	KindPlain Kind = ""
	// KindBilling marks a group that owns projects for cost aggregation
	KindBilling Kind = "billing"
	// KindRoleSubgroup marks a synthetic membership-and-role carrier
	KindRoleSubgroup Kind = "role-subgroup"
)

// Group represents a node in the tenant's group hierarchy
type Group struct {
	ID   uuid.UUID
	Name string
	// Path encodes the exact ancestor chain, slash-delimited by group name
	// (e.g. "/customer-a/customer-a-drupal"). The direct parent is always
	// the path with the last segment removed.
	Path string
	Kind Kind
	// Billing groups only
	Currency        string
	BillingSoftware string
	// Projects directly attached to this group
	Projects ProjectSet
	// Realm roles bound to this group. Role subgroups carry exactly one.
	RealmRoles []string
}

// Clone returns a copy of the group with an independent project set
func (g Group) Clone() Group {
	g.Projects = g.Projects.Clone()
	return g
}

// nameRegex allows only lowercase letters, digits and dashes
var nameRegex = regexp.MustCompile(`^[0-9a-z-]+$`)

// ValidateName checks a group name against the naming rule. It is called
// before any directory round-trip.
func ValidateName(name string) error {
	if strings.TrimSpace(name) == "" {
		return shared.NewValidationError("Group name cannot be empty")
	}
	if !nameRegex.MatchString(name) {
		return shared.NewValidationError("Only lowercase characters, numbers and dashes allowed for name!")
	}
	return nil
}

// IsBilling returns true for billing-type groups
func (g Group) IsBilling() bool {
	return g.Kind == KindBilling
}

// IsRoleSubgroup returns true for role subgroups
func (g Group) IsRoleSubgroup() bool {
	return g.Kind == KindRoleSubgroup
}

// ParentName derives the direct parent's name from the path, or "" for a
// root group.
func (g Group) ParentName() string {
	segments := strings.Split(g.Path, "/")
	if len(segments) < 2 {
		return ""
	}
	return segments[len(segments)-2]
}

// RoleSubgroupName returns the reserved name of the role subgroup carrying
// members with the given role in the named group.
func RoleSubgroupName(groupName, role string) string {
	return groupName + "-" + role
}

// RenameRoleSubgroup rewrites a role subgroup's name after its owning group
// was renamed, replacing the old owner-name prefix.
func RenameRoleSubgroup(subgroupName, oldName, newName string) string {
	return strings.Replace(subgroupName, oldName, newName, 1)
}

// RoleFromSubgroup extracts the role carried by a role subgroup. The first
// realm role is authoritative; subgroups with no realm role carry no
// resolvable role.
func (g Group) RoleFromSubgroup() (string, bool) {
	if !g.IsRoleSubgroup() || len(g.RealmRoles) == 0 {
		return "", false
	}
	return g.RealmRoles[0], true
}
