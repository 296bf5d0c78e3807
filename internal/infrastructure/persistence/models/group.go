package models

import (
	"time"

	"github.com/google/uuid"
)

// GroupModel is the persistence model for a group hierarchy node. The path
// is not stored; it is derived from the parent chain on read.
type GroupModel struct {
	ID        uuid.UUID  `gorm:"type:uuid;primary_key"`
	Name      string     `gorm:"type:varchar(255);not null;uniqueIndex"`
	ParentID  *uuid.UUID `gorm:"type:uuid;index"`
	CreatedAt time.Time  `gorm:"not null"`
	UpdatedAt time.Time  `gorm:"not null"`
}

// TableName returns the table name for GORM
func (GroupModel) TableName() string {
	return "groups"
}

// GroupAttributeModel is one key/value entry of a group's attribute bag.
// Keys may repeat to carry multi-valued attributes.
type GroupAttributeModel struct {
	ID      uint      `gorm:"primary_key;autoIncrement"`
	GroupID uuid.UUID `gorm:"type:uuid;not null;index"`
	Name    string    `gorm:"type:varchar(255);not null"`
	Value   string    `gorm:"type:text;not null"`
}

// TableName returns the table name for GORM
func (GroupAttributeModel) TableName() string {
	return "group_attributes"
}

// GroupRealmRoleModel binds a realm role to a group
type GroupRealmRoleModel struct {
	GroupID uuid.UUID `gorm:"type:uuid;primary_key"`
	Role    string    `gorm:"type:varchar(255);primary_key"`
}

// TableName returns the table name for GORM
func (GroupRealmRoleModel) TableName() string {
	return "group_realm_roles"
}

// GroupMemberModel attaches a user to a group
type GroupMemberModel struct {
	GroupID uuid.UUID `gorm:"type:uuid;primary_key"`
	UserID  uuid.UUID `gorm:"type:uuid;primary_key"`
}

// TableName returns the table name for GORM
func (GroupMemberModel) TableName() string {
	return "group_members"
}

// UserModel is the persistence model for a directory user
type UserModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	Email     string    `gorm:"type:varchar(255);not null;uniqueIndex"`
	FirstName string    `gorm:"type:varchar(255)"`
	LastName  string    `gorm:"type:varchar(255)"`
	Comment   string    `gorm:"type:text"`
	CreatedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// RealmRoleModel is a realm-level role a group can bind
type RealmRoleModel struct {
	ID   uuid.UUID `gorm:"type:uuid;primary_key"`
	Name string    `gorm:"type:varchar(255);not null;uniqueIndex"`
}

// TableName returns the table name for GORM
func (RealmRoleModel) TableName() string {
	return "realm_roles"
}
