package httpapi

import (
	"crypto/rand"
	"errors"
	"strings"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"autobill/backend/internal/domain"
)

const RoleOwner = "owner"

var errInvalidCredentials = errors.New("invalid credentials")

// AuthManager signs in the single shop owner configured at startup and
// issues HS256 access tokens.
type AuthManager struct {
	secret        []byte
	tokenTTL      time.Duration
	ownerUsername string
	ownerHash     string
}

type billingClaims struct {
	jwtlib.RegisteredClaims
	Role string `json:"role"`
}

// NewAuthManager accepts the owner password either as plain text or as a
// bcrypt hash. An empty password disables login. An empty secret is replaced
// with a random one, so tokens do not survive a restart.
func NewAuthManager(secret string, tokenTTL time.Duration, ownerUsername string, ownerPassword string) *AuthManager {
	key := []byte(secret)
	if secret == "" {
		key = make([]byte, 32)
		_, _ = rand.Read(key)
	}
	if tokenTTL <= 0 {
		tokenTTL = 12 * time.Hour
	}

	ownerHash := ""
	if ownerPassword != "" {
		if isPasswordHash(ownerPassword) {
			ownerHash = ownerPassword
		} else if hashed, err := hashPassword(ownerPassword); err == nil {
			ownerHash = hashed
		}
	}

	return &AuthManager{
		secret:        key,
		tokenTTL:      tokenTTL,
		ownerUsername: strings.ToLower(strings.TrimSpace(ownerUsername)),
		ownerHash:     ownerHash,
	}
}

func (a *AuthManager) Login(req domain.LoginRequest) (domain.LoginResponse, error) {
	username := strings.ToLower(strings.TrimSpace(req.Username))
	if a.ownerHash == "" || username == "" || username != a.ownerUsername {
		return domain.LoginResponse{}, errInvalidCredentials
	}
	if !verifyPassword(a.ownerHash, req.Password) {
		return domain.LoginResponse{}, errInvalidCredentials
	}

	expiresAt := time.Now().UTC().Add(a.tokenTTL)
	token, err := a.sign(username, RoleOwner, expiresAt)
	if err != nil {
		return domain.LoginResponse{}, err
	}

	return domain.LoginResponse{
		AccessToken: token,
		Role:        RoleOwner,
		ExpiresAt:   expiresAt.Format(time.RFC3339),
	}, nil
}

func (a *AuthManager) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &billingClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return a.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}))
	if err != nil || !token.Valid {
		return domain.Actor{}, errors.New("invalid or expired token")
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return domain.Actor{}, errors.New("invalid token subject")
	}
	return domain.Actor{Username: sub, Role: claims.Role}, nil
}

func (a *AuthManager) sign(username, role string, expiresAt time.Time) (string, error) {
	claims := billingClaims{
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   username,
			IssuedAt:  jwtlib.NewNumericDate(time.Now().UTC()),
			ExpiresAt: jwtlib.NewNumericDate(expiresAt),
			Issuer:    "autobill",
		},
		Role: role,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(a.secret)
}

func verifyPassword(stored string, input string) bool {
	if stored == "" || strings.TrimSpace(input) == "" || !isPasswordHash(stored) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(stored), []byte(input)) == nil
}

func hashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

func isPasswordHash(value string) bool {
	return strings.HasPrefix(value, "$2a$") || strings.HasPrefix(value, "$2b$") || strings.HasPrefix(value, "$2y$")
}
