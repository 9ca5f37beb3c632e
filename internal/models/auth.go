package models

import "github.com/golang-jwt/jwt/v5"

// UserRole is the caller's role as asserted by the identity provider.
type UserRole string

const (
	RoleSuperAdmin UserRole = "SUPERADMIN"
	RoleAdmin      UserRole = "ADMIN"
	RoleTeacher    UserRole = "TEACHER"
)

// JWTClaims represents the access token payload. SchoolID scopes every timetable operation.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	SchoolID string   `json:"school_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	jwt.RegisteredClaims
}

