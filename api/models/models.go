// Package models holds the request and response types of the HTTP API.
package models

// Identity is the authenticated user attached to the request context.
type Identity struct {
	UserID   string
	Username string
}

// RegisterRequest is the body of POST /api/auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RegisterResponse is the body returned on successful registration.
type RegisterResponse struct {
	Message  string `json:"message"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// LoginRequest is the body of POST /api/auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse carries the bearer token the frontend stores.
type LoginResponse struct {
	Token    string `json:"token"`
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// CreateSubpageRequest is the body of POST /api/me/subpages.
type CreateSubpageRequest struct {
	Name string `json:"name"`
}

// AdminUser is the per-user view of the admin listing. It deliberately
// carries no password hash.
type AdminUser struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}
