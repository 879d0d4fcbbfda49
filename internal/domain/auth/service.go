package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/urbansims/microgreens/internal/domain/cultivation"
	apperrors "github.com/urbansims/microgreens/pkg/errors"
)

// Service exposes authentication workflows.
type Service interface {
	Register(ctx context.Context, req RegisterRequest) (UserView, error)
	Login(ctx context.Context, req LoginRequest) (LoginResponse, error)
	ValidateToken(ctx context.Context, token string) (Claims, error)
	Refresh(ctx context.Context, refreshToken string) (LoginResponse, error)
	Profile(ctx context.Context, userID int64) (UserView, error)
	UpdatePreferences(ctx context.Context, userID int64, req PreferencesRequest) (UserView, error)
}

type service struct {
	cfg    Config
	repo   Repository
	admins map[string]struct{}
	logger *slog.Logger
}

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// NewService constructs a Service instance.
func NewService(cfg Config, repo Repository, logger *slog.Logger) Service {
	admins := make(map[string]struct{}, len(cfg.AdminUsernames))
	for _, name := range cfg.AdminUsernames {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			admins[name] = struct{}{}
		}
	}
	return &service{
		cfg:    cfg,
		repo:   repo,
		admins: admins,
		logger: logger.With("component", "auth.service"),
	}
}

func (s *service) Register(ctx context.Context, req RegisterRequest) (UserView, error) {
	username, err := normalizeUsername(req.Username)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	email, err := normalizeEmail(req.Email)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "invalid email address", err)
	}
	if err := validatePassword(req.Password); err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	mode, err := normalizeMode(req.PreferenceMode)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
	}
	_, exists, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to check user", err)
	}
	if exists {
		return UserView{}, apperrors.Wrap(apperrors.CodeUsernameTaken, "username already registered", nil)
	}
	_, exists, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to check user", err)
	}
	if exists {
		return UserView{}, apperrors.Wrap(apperrors.CodeConflict, "email already registered", nil)
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to hash password", err)
	}
	role := RoleUser
	if _, ok := s.admins[username]; ok {
		role = RoleAdmin
	}
	user, err := s.repo.Create(ctx, User{
		Username:        username,
		Email:           email,
		PasswordHash:    string(hashed),
		Role:            role,
		PreferenceMode:  mode,
		DefaultTraySize: cultivation.DefaultTrayLabel,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrUsernameExists):
			return UserView{}, apperrors.Wrap(apperrors.CodeUsernameTaken, "username already registered", err)
		case errors.Is(err, ErrEmailExists):
			return UserView{}, apperrors.Wrap(apperrors.CodeConflict, "email already registered", err)
		}
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to create user", err)
	}
	s.logger.Info("user registered", "user_id", user.ID, "role", user.Role)
	return toView(user), nil
}

func (s *service) Login(ctx context.Context, req LoginRequest) (LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if username == "" {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "username cannot be empty", nil)
	}
	if strings.TrimSpace(req.Password) == "" {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidInput, "password cannot be empty", nil)
	}
	user, found, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeAuth, "failed to fetch user", err)
	}
	if !found {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidCreds, "incorrect username or password", nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidCreds, "incorrect username or password", nil)
	}
	return s.buildLoginResponse(user)
}

func (s *service) ValidateToken(ctx context.Context, token string) (Claims, error) {
	if strings.TrimSpace(token) == "" {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing", nil)
	}
	claims, err := s.parseToken(token)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != tokenTypeAccess {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token type mismatch", nil)
	}
	return claims, nil
}

func (s *service) Profile(ctx context.Context, userID int64) (UserView, error) {
	user, found, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to load profile", err)
	}
	if !found {
		return UserView{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", nil)
	}
	return toView(user), nil
}

func (s *service) UpdatePreferences(ctx context.Context, userID int64, req PreferencesRequest) (UserView, error) {
	user, found, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to load profile", err)
	}
	if !found {
		return UserView{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", nil)
	}
	mode := user.PreferenceMode
	if strings.TrimSpace(req.PreferenceMode) != "" {
		if mode, err = normalizeMode(req.PreferenceMode); err != nil {
			return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, err.Error(), nil)
		}
	}
	tray := user.DefaultTraySize
	if strings.TrimSpace(req.DefaultTraySize) != "" {
		size, err := cultivation.ParseTraySize(req.DefaultTraySize)
		if err != nil {
			return UserView{}, apperrors.Wrap(apperrors.CodeInvalidInput, "unsupported tray size", err)
		}
		tray = size.Label()
	}
	updated, err := s.repo.UpdatePreferences(ctx, userID, mode, tray)
	if err != nil {
		return UserView{}, apperrors.Wrap(apperrors.CodeAuth, "failed to update preferences", err)
	}
	return toView(updated), nil
}

func (s *service) Refresh(ctx context.Context, refreshToken string) (LoginResponse, error) {
	claims, err := s.parseToken(refreshToken)
	if err != nil {
		return LoginResponse{}, err
	}
	if claims.TokenType != tokenTypeRefresh {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token type mismatch", nil)
	}
	user, found, err := s.repo.GetByID(ctx, claims.UserID)
	if err != nil {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeAuth, "failed to load user", err)
	}
	if !found {
		return LoginResponse{}, apperrors.Wrap(apperrors.CodeUserNotFound, "user not found", nil)
	}
	return s.buildLoginResponse(user)
}

func (s *service) buildLoginResponse(user User) (LoginResponse, error) {
	access, err := s.generateToken(user, tokenTypeAccess, s.cfg.TokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	refresh, err := s.generateToken(user, tokenTypeRefresh, s.cfg.RefreshTokenTTL)
	if err != nil {
		return LoginResponse{}, err
	}
	return LoginResponse{
		Token:        access,
		TokenType:    "bearer",
		RefreshToken: refresh,
		User:         toView(user),
	}, nil
}

func (s *service) generateToken(user User, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := tokenClaims{
		UserID:    user.ID,
		Username:  user.Username,
		Role:      user.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(user.ID, 10),
			ID:        newTokenID(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.Secret))
	if err != nil {
		return "", apperrors.Wrap(apperrors.CodeAuth, "failed to sign token", err)
	}
	return signed, nil
}

func (s *service) parseToken(token string) (Claims, error) {
	parsed, err := jwt.ParseWithClaims(token, &tokenClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %s", t.Method.Alg())
		}
		return []byte(s.cfg.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token validation failed", err)
	}
	claims, ok := parsed.Claims.(*tokenClaims)
	if !ok || !parsed.Valid {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token invalid", nil)
	}
	if claims.ExpiresAt == nil {
		return Claims{}, apperrors.Wrap(apperrors.CodeInvalidToken, "token missing expiry", nil)
	}
	return Claims{
		UserID:    claims.UserID,
		Username:  claims.Username,
		Role:      claims.Role,
		TokenType: claims.TokenType,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func toView(user User) UserView {
	return UserView{
		ID:              user.ID,
		Username:        user.Username,
		Email:           user.Email,
		Role:            user.Role,
		PreferenceMode:  user.PreferenceMode,
		DefaultTraySize: user.DefaultTraySize,
		CreatedAt:       user.CreatedAt,
	}
}

func normalizeUsername(raw string) (string, error) {
	username := strings.ToLower(strings.TrimSpace(raw))
	if len(username) < 3 {
		return "", errors.New("username must be at least 3 characters")
	}
	if len(username) > 50 {
		return "", errors.New("username cannot exceed 50 characters")
	}
	for _, r := range username {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_' && r != '-' && r != '.' {
			return "", errors.New("username may only contain letters, digits, '.', '-' and '_'")
		}
	}
	return username, nil
}

func normalizeEmail(raw string) (string, error) {
	email := strings.TrimSpace(strings.ToLower(raw))
	if email == "" {
		return "", errors.New("email cannot be empty")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "", err
	}
	return email, nil
}

func normalizeMode(raw string) (string, error) {
	switch mode := strings.ToLower(strings.TrimSpace(raw)); mode {
	case "":
		return ModeHome, nil
	case ModeHome, ModePro:
		return mode, nil
	default:
		return "", fmt.Errorf("preference_mode must be %q or %q", ModeHome, ModePro)
	}
}

func validatePassword(password string) error {
	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}
	return nil
}

type tokenClaims struct {
	jwt.RegisteredClaims
	UserID    int64  `json:"userId"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"type"`
}

func newTokenID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 10)
	}
	return hex.EncodeToString(buf)
}
