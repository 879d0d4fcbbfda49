package auth

import "time"

// Config drives authentication behavior.
type Config struct {
	Secret          string
	TokenTTL        time.Duration
	RefreshTokenTTL time.Duration
	// AdminUsernames are granted the admin role when they register.
	AdminUsernames []string
}

// Roles a user can hold.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Preference modes tune how much detail the dashboard shows.
const (
	ModeHome = "home"
	ModePro  = "pro"
)

// User represents a persisted account.
type User struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	PasswordHash    string    `json:"-"`
	Role            string    `json:"role"`
	PreferenceMode  string    `json:"preferenceMode"`
	DefaultTraySize string    `json:"defaultTraySize"`
	CreatedAt       time.Time `json:"createdAt"`
}

// RegisterRequest captures the registration payload.
type RegisterRequest struct {
	Username       string `json:"username"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	PreferenceMode string `json:"preference_mode"`
}

// LoginRequest captures login details.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse returns the signed tokens.
type LoginResponse struct {
	Token        string   `json:"token"`
	TokenType    string   `json:"tokenType"`
	RefreshToken string   `json:"refreshToken"`
	User         UserView `json:"user"`
}

// UserView trims sensitive fields.
type UserView struct {
	ID              int64     `json:"id"`
	Username        string    `json:"username"`
	Email           string    `json:"email"`
	Role            string    `json:"role"`
	PreferenceMode  string    `json:"preferenceMode"`
	DefaultTraySize string    `json:"defaultTraySize"`
	CreatedAt       time.Time `json:"createdAt"`
}

// PreferencesRequest updates the dashboard preferences of a user. Empty
// fields are left unchanged.
type PreferencesRequest struct {
	PreferenceMode  string `json:"preference_mode"`
	DefaultTraySize string `json:"default_tray_size"`
}

// Claims are extracted from the JWT token.
type Claims struct {
	UserID    int64
	Username  string
	Role      string
	TokenType string
	ExpiresAt time.Time
}

// IsAdmin reports whether the token carries the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// RefreshRequest encapsulates refresh token payload.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
