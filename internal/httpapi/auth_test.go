package httpapi

import (
	"strings"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"autobill/backend/internal/domain"
)

func TestAuthManagerLoginIssuesOwnerToken(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "Owner", "shop-pass")

	resp, err := manager.Login(domain.LoginRequest{Username: " owner ", Password: "shop-pass"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != RoleOwner || resp.AccessToken == "" {
		t.Fatalf("unexpected login response %+v", resp)
	}

	actor, err := manager.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if actor.Username != "owner" || actor.Role != RoleOwner {
		t.Fatalf("unexpected actor %+v", actor)
	}
}

func TestAuthManagerRejectsWrongCredentials(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "owner", "shop-pass")

	if _, err := manager.Login(domain.LoginRequest{Username: "owner", Password: "nope"}); err == nil {
		t.Fatalf("expected wrong password to fail")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "cashier", Password: "shop-pass"}); err == nil {
		t.Fatalf("expected unknown user to fail")
	}
}

func TestAuthManagerWithoutPasswordDisablesLogin(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "owner", "")

	if _, err := manager.Login(domain.LoginRequest{Username: "owner", Password: ""}); err == nil {
		t.Fatalf("expected login to be disabled")
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "owner", Password: "anything"}); err == nil {
		t.Fatalf("expected login to be disabled")
	}
}

func TestAuthManagerAcceptsPreHashedPassword(t *testing.T) {
	hash := mustHashPassword(t, "hashed-pass")
	manager := NewAuthManager("test-secret", time.Hour, "owner", hash)

	if _, err := manager.Login(domain.LoginRequest{Username: "owner", Password: "hashed-pass"}); err != nil {
		t.Fatalf("login with hashed owner password failed: %v", err)
	}
	if _, err := manager.Login(domain.LoginRequest{Username: "owner", Password: hash}); err == nil {
		t.Fatalf("the hash itself must not work as a password")
	}
}

func TestParseTokenRejectsForeignAndExpiredTokens(t *testing.T) {
	manager := NewAuthManager("test-secret", time.Hour, "owner", "shop-pass")
	other := NewAuthManager("other-secret", time.Hour, "owner", "shop-pass")

	foreign, err := other.sign("owner", RoleOwner, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(foreign); err == nil {
		t.Fatalf("expected token signed with another secret to fail")
	}

	expired, err := manager.sign("owner", RoleOwner, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := manager.ParseToken(expired); err == nil {
		t.Fatalf("expected expired token to fail")
	}

	unsigned := jwtlib.NewWithClaims(jwtlib.SigningMethodNone, jwtlib.RegisteredClaims{Subject: "owner"})
	raw, err := unsigned.SignedString(jwtlib.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := manager.ParseToken(raw); err == nil {
		t.Fatalf("expected alg=none token to fail")
	}
}

func TestRandomSecretWhenUnset(t *testing.T) {
	a := NewAuthManager("", time.Hour, "owner", "shop-pass")
	b := NewAuthManager("", time.Hour, "owner", "shop-pass")

	resp, err := a.Login(domain.LoginRequest{Username: "owner", Password: "shop-pass"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := b.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("managers without a secret must not share a signing key")
	}
	if strings.Count(resp.AccessToken, ".") != 2 {
		t.Fatalf("expected a JWT, got %q", resp.AccessToken)
	}
}
