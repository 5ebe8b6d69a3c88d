// File: /models/user.go
package models

import (
	"time"
)

const (
	RoleVisitor = "visitor"
	RoleAuthor  = "author"
	RoleAdmin   = "admin"
)

type User struct {
	ID            string    `json:"id" gorm:"primaryKey;size:191"`
	Name          string    `json:"name" gorm:"not null;size:255"`
	Email         string    `json:"email" gorm:"uniqueIndex;not null;size:255"`
	Password      string    `json:"-" gorm:"not null;size:255"`
	Role          string    `json:"role" gorm:"not null;size:20;default:'visitor'"`
	EmailVerified bool      `json:"email_verified" gorm:"default:false"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`

	Events []Event `json:"events,omitempty" gorm:"foreignKey:CreatorID"`
}

func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func (u *User) CanPublish() bool {
	return u.Role == RoleAuthor || u.Role == RoleAdmin
}

const (
	ApplicationPending  = "pending"
	ApplicationApproved = "approved"
	ApplicationDeclined = "declined"
)

// AuthorApplication is a visitor's request to become an event author.
// Admins approve or decline; approval promotes the applicant's role.
type AuthorApplication struct {
	ID        string     `json:"id" gorm:"primaryKey;size:191"`
	UserID    string     `json:"user_id" gorm:"not null;size:191;index"`
	Message   string     `json:"message" gorm:"type:text"`
	Status    string     `json:"status" gorm:"not null;size:20;default:'pending';index"`
	DecidedBy string     `json:"decided_by" gorm:"size:191"`
	DecidedAt *time.Time `json:"decided_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	User User `json:"user" gorm:"foreignKey:UserID"`
}
