package models

import "time"

// Role names assigned through the identity subsystem.
const (
	RoleAdmin       = "Admin"
	RoleBeneficiary = "Beneficiary"
	RoleShop        = "Shop"
)

// User is an identity account. IDs are UUID strings issued by the identity
// manager. Deleted mirrors the beneficiary soft-delete flag so that a
// soft-deleted pair stays consistent.
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Email    string `gorm:"uniqueIndex;size:255;not null" json:"email"`
	Name     string `gorm:"size:255" json:"name,omitempty"`
	Password string `gorm:"size:255;not null" json:"-"` // Hashed, never exposed in JSON

	Deleted bool `gorm:"not null;default:false;index" json:"deleted"`

	Roles []Role `gorm:"many2many:user_roles" json:"roles,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Role is an identity role.
type Role struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Name string `gorm:"uniqueIndex;size:50;not null" json:"name"`
}

// HasRole reports whether the user's loaded roles contain name.
func (u *User) HasRole(name string) bool {
	for _, r := range u.Roles {
		if r.Name == name {
			return true
		}
	}
	return false
}
