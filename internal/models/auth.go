package models

import "github.com/golang-jwt/jwt/v5"

// UserRole enumerates platform roles carried in access tokens.
type UserRole string

// Roles recognised by this service. Tokens are issued by the platform's
// identity service; only the role claim matters here.
const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
)

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}
