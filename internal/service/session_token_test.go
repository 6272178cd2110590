package service

import (
	"errors"
	"testing"
	"time"
)

func TestSessionTokenRoundTrip(t *testing.T) {
	svc := NewSessionTokenService("super-secreto", time.Hour)

	token, err := svc.Issue("u1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	claims, err := svc.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != "u1" || claims.SessionID != "s1" {
		t.Fatalf("unexpected claims %+v", claims)
	}
}

func TestSessionTokenRejectsWrongSecret(t *testing.T) {
	issuer := NewSessionTokenService("secreto-a", time.Hour)
	verifier := NewSessionTokenService("secreto-b", time.Hour)

	token, err := issuer.Issue("u1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := verifier.Parse(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid, got %v", err)
	}
}

func TestSessionTokenExpires(t *testing.T) {
	svc := NewSessionTokenService("super-secreto", time.Millisecond)

	token, err := svc.Issue("u1", "s1")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	time.Sleep(10 * time.Millisecond)
	if _, err := svc.Parse(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
}

func TestSessionTokenRequiresSecret(t *testing.T) {
	svc := NewSessionTokenService("", time.Hour)
	if _, err := svc.Issue("u1", "s1"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid without secret, got %v", err)
	}
}
