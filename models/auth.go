package models

type AuthRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  `json:"user"`
}

type RedisPayload struct {
	User         `json:"user"`
	RefreshToken string `json:"refresh-token"`
}

type User struct {
	Id    int64  `json:"id" db:"id"`
	Name  string `json:"name" db:"name"`
	Email string `json:"email" db:"email"`
	Role  string `json:"role" db:"role"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type PasswordReset struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type Role string

const (
	Admin Role = "ADMIN"
	Staff Role = "STAFF"
)
