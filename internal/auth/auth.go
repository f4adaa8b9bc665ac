// Package auth issues and verifies the access tokens that carry the opaque
// user identifier every reading operation is scoped by.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"vitalog/internal/utility"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 30 * 24 * time.Hour
)

var pool *pgxpool.Pool

// Init wires the package to the database. Must be called before any handler
// is registered.
func Init(p *pgxpool.Pool) error {
	if p == nil {
		return fmt.Errorf("auth: nil connection pool")
	}
	pool = p
	return nil
}

// JwtCustomClaims are the claims carried by an access token.
type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	UserID       string `json:"user_id"`
}

// SignupHandler registers a user with a bcrypt-hashed password.
func SignupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || len(req.Password) < 8 {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and a password of at least 8 characters are required"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Error().Err(err).Msg("Failed to hash password")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create account"})
	}

	var userID string
	err = pool.QueryRow(ctx, `
		INSERT INTO users (user_email, user_name, user_password)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_email) DO NOTHING
		RETURNING user_id`,
		req.Email, req.Name, string(hashedPassword)).Scan(&userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return c.JSON(http.StatusConflict, map[string]string{"error": "An account with that email already exists"})
	}
	if err != nil {
		log.Error().Err(err).Msg("Failed to create user")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create account"})
	}

	return c.JSON(http.StatusCreated, map[string]string{"user_id": userID})
}

// LoginHandler verifies credentials and issues an access/refresh token pair.
func LoginHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	var (
		userID   string
		name     string
		password string
	)
	err := pool.QueryRow(ctx, `
		SELECT user_id, user_name, user_password FROM users WHERE user_email = $1`,
		req.Email).Scan(&userID, &name, &password)
	if err != nil {
		log.Warn().Str("ip", utility.GetRealIP(c)).Msg("Login attempt for unknown email")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(password), []byte(req.Password)); err != nil {
		log.Warn().Str("ip", utility.GetRealIP(c)).Msg("Login attempt with wrong password")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	accessToken, err := generateAccessToken(userID, req.Email, name)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate access token")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	refreshToken, err := generateAndStoreRefreshToken(ctx, userID)
	if err != nil {
		log.Error().Err(err).Msg("Failed to generate refresh token")
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating refresh token"})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenDuration.Seconds()),
		UserID:       userID,
	})
}

// RefreshHandler rotates a refresh token and issues a fresh access token.
func RefreshHandler(c echo.Context) error {
	ctx := c.Request().Context()

	refreshToken := bearerToken(c.Request())
	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No refresh token provided"})
	}

	userID, newRefreshToken, err := useRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Warn().Err(err).Msg("Refresh token rejected")
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired refresh token"})
	}

	var email, name string
	if err := pool.QueryRow(ctx,
		`SELECT user_email, user_name FROM users WHERE user_id = $1`, userID).Scan(&email, &name); err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired refresh token"})
	}

	accessToken, err := generateAccessToken(userID, email, name)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	return c.JSON(http.StatusOK, AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: newRefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenDuration.Seconds()),
		UserID:       userID,
	})
}

// LogoutHandler revokes every refresh token of the calling user.
func LogoutHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := c.Get("user_id").(string)
	if ok && userID != "" {
		if _, err := pool.Exec(ctx,
			`UPDATE refresh_tokens SET revoked_at = now() WHERE user_id = $1 AND revoked_at IS NULL`,
			userID); err != nil {
			log.Error().Err(err).Msg("Error revoking tokens")
		}
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// JwtAuthMiddleware verifies the bearer token and stores the caller's user id
// in the request context. It runs before any field validation.
func JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		tokenString := bearerToken(c.Request())
		if tokenString == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Authentication required", "code": "unauthenticated"})
		}

		sessionSecret := os.Getenv("SESSION_SECRET")
		token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return []byte(sessionSecret), nil
		})
		if err != nil || !token.Valid {
			log.Warn().Err(err).Msg("Token validation error")
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token", "code": "unauthenticated"})
		}

		claims, ok := token.Claims.(*JwtCustomClaims)
		if !ok || claims.UserID == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid token", "code": "unauthenticated"})
		}

		c.Set("user_id", claims.UserID)
		return next(c)
	}
}

// Helper functions

func bearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

func generateAccessToken(userID, email, name string) (string, error) {
	claims := &JwtCustomClaims{
		UserID: userID,
		Email:  email,
		Name:   name,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "vitalog",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	sessionSecret := os.Getenv("SESSION_SECRET")
	return token.SignedString([]byte(sessionSecret))
}

func generateAndStoreRefreshToken(ctx context.Context, userID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	_, err := pool.Exec(ctx, `
		INSERT INTO refresh_tokens (token_hash, user_id, expires_at)
		VALUES ($1, $2, $3)`,
		tokenHash, userID, time.Now().Add(RefreshTokenDuration))
	if err != nil {
		return "", err
	}
	return token, nil
}

func useRefreshToken(ctx context.Context, token string) (string, string, error) {
	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	var (
		userID    string
		expiresAt time.Time
		revokedAt *time.Time
	)
	err := pool.QueryRow(ctx, `
		SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash = $1`,
		tokenHash).Scan(&userID, &expiresAt, &revokedAt)
	if err != nil {
		return "", "", fmt.Errorf("invalid refresh token")
	}
	if revokedAt != nil {
		return "", "", fmt.Errorf("token has been revoked")
	}
	if time.Now().After(expiresAt) {
		return "", "", fmt.Errorf("token has expired")
	}

	// Rotate: one use per token.
	if _, err := pool.Exec(ctx,
		`UPDATE refresh_tokens SET revoked_at = now() WHERE token_hash = $1`, tokenHash); err != nil {
		return "", "", err
	}

	newToken, err := generateAndStoreRefreshToken(ctx, userID)
	if err != nil {
		return "", "", err
	}
	return userID, newToken, nil
}
