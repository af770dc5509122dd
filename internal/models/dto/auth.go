package dto

import "github.com/carelink/carelink-be/internal/auth"

// RegisterRequest is the registration payload. PasswordConfirm is optional;
// when sent it must match Password.
type RegisterRequest struct {
	Username        string  `json:"username"`
	Email           string  `json:"email"`
	Name            string  `json:"name"`
	Password        string  `json:"password"`
	PasswordConfirm *string `json:"password_confirm,omitempty"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Refresh string `json:"refresh"`
}

// UserSummary is the public view of a registered user.
type UserSummary struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Name     string `json:"name"`
}

type RegisterResponse struct {
	User   UserSummary    `json:"user"`
	Tokens auth.TokenPair `json:"tokens"`
}

type AccessResponse struct {
	Access string `json:"access"`
}
