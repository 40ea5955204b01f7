package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LoginRequest holds credentials for authenticating a user.
type LoginRequest struct {
	ID       string `json:"id" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and user info.
type LoginResponse struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	User        UserInfo    `json:"user"`
	Profile     RoleProfile `json:"profile"`
	IssuedAt    time.Time   `json:"issued_at"`
}

// ParentSignupRequest registers a parent account for an enrolled student.
// StudentName is matched against the registry verbatim.
type ParentSignupRequest struct {
	StudentName string `json:"student_name" validate:"required"`
	Password    string `json:"password" validate:"required,min=4"`
}

// TeacherSignupRequest registers a staff account with a one-time code.
type TeacherSignupRequest struct {
	TeacherID string `json:"teacher_id" validate:"required,max=64"`
	Password  string `json:"password" validate:"required,min=4"`
	Name      string `json:"name" validate:"required,max=100"`
	Code      string `json:"code" validate:"required"`
}

// UserInfo describes the authenticated user in responses.
type UserInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Role        UserRole `json:"role"`
	StudentName string   `json:"student_name,omitempty"`
}

// Identity is the resolved session identity with its capabilities.
type Identity struct {
	User    UserInfo    `json:"user"`
	Profile RoleProfile `json:"profile"`
	Master  bool        `json:"master"`
}

// TeacherCode is a one-time staff signup code.
type TeacherCode struct {
	Code string `json:"code"`
}

// JWTClaims represents the JWT payload for access tokens.
type JWTClaims struct {
	UserID string   `json:"user_id"`
	Role   UserRole `json:"role"`
	Name   string   `json:"name"`
	jwt.RegisteredClaims
}

// Actor converts claims into the acting user.
func (c *JWTClaims) Actor() Actor {
	if c == nil {
		return Actor{}
	}
	return Actor{ID: c.UserID, Role: c.Role}
}

// Actor identifies who is invoking a service operation.
type Actor struct {
	ID   string
	Role UserRole
}

// SignupResult carries the created account and the mutation outcome.
type SignupResult struct {
	User UserInfo `json:"user"`
	Outcome
}

// TeacherCodeResult carries a freshly generated code and the mutation outcome.
type TeacherCodeResult struct {
	Code string `json:"code"`
	Outcome
}
