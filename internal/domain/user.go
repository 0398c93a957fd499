package domain

import (
	"context"
	"time"
)

// User is a staff or student account that can sign in
type User struct {
	ID           string     `bson:"_id,omitempty" json:"id"`
	Email        string     `bson:"email" json:"email"`
	Name         string     `bson:"name" json:"name"`
	PasswordHash string     `bson:"password_hash" json:"-"`
	Role         string     `bson:"role" json:"role"`
	StudentID    string     `bson:"student_id,omitempty" json:"student_id,omitempty"` // For student accounts
	Active       bool       `bson:"active" json:"active"`
	CreatedAt    time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `bson:"updated_at" json:"updated_at"`
	LastLoginAt  *time.Time `bson:"last_login_at,omitempty" json:"last_login_at,omitempty"`
}

// HasRole checks if user has a specific role
func (u *User) HasRole(role string) bool {
	return u.Role == role
}

// UserRepository defines operations for managing users
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetFirstByRole(ctx context.Context, role string) (*User, error)
	GetAll(ctx context.Context) ([]*User, error)
	Deactivate(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id string, passwordHash string) error
	RecordLogin(ctx context.Context, id string) error
}

// Role constants
const (
	RoleAdmin   = "admin"
	RoleStudent = "student" // Read-only account linked to one student
)

// ValidRole reports whether role is assignable
func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleStudent
}
