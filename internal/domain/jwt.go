package domain

import (
	"github.com/golang-jwt/jwt/v5"
)

// CohabClaims represents custom JWT claims for COHAB sessions
type CohabClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email,omitempty"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	StudentID string `json:"student_id,omitempty"`
	jwt.RegisteredClaims
}
