package domain

import (
	"errors"
	"time"
)

// User errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// User is an analyst account. Sources is the set of source names the
// analyst is allowed to see; events without an overlapping source are
// hidden from them.
type User struct {
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Admin        bool      `json:"admin"`
	Sources      []string  `json:"sources"`
	Created      time.Time `json:"created"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginResponse struct {
	Token string `json:"token"`
}
