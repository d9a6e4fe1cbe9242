package app

import (
	"context"
	"testing"
)

func TestSignUpLoginRoundTrip(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	created, err := env.service.SignUp(ctx, SignUpInput{
		Email:       "nora@example.com",
		Password:    "drafting-board-9",
		DisplayName: "Nora Architect",
		Role:        "team_member",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if created.Token == "" || created.RefreshToken == "" {
		t.Fatal("sign up must issue both tokens")
	}
	if created.Role != "team_member" {
		t.Fatalf("role = %q", created.Role)
	}

	session, err := env.service.Login(ctx, "nora@example.com", "drafting-board-9")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	parsed, err := env.service.SessionFromToken(ctx, session.Token)
	if err != nil {
		t.Fatalf("session from token: %v", err)
	}
	if parsed.UserID != created.UserID || parsed.UserName != "Nora Architect" {
		t.Fatalf("token identifies wrong user: %+v", parsed)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	if _, err := env.service.SignUp(ctx, SignUpInput{
		Email:       "kit@example.com",
		Password:    "structural-steel",
		DisplayName: "Kit Engineer",
	}); err != nil {
		t.Fatalf("sign up: %v", err)
	}

	_, err := env.service.Login(ctx, "kit@example.com", "wrong")
	var domainErr *DomainError
	if derr, ok := err.(*DomainError); ok {
		domainErr = derr
	}
	if domainErr == nil || domainErr.Status != 401 {
		t.Fatalf("expected 401, got %v", err)
	}
}

func TestRefreshRotatesToken(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.service.SignUp(ctx, SignUpInput{
		Email:       "remy@example.com",
		Password:    "cantilever-22",
		DisplayName: "Remy PM",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	renewed, err := env.service.Refresh(ctx, session.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if renewed.RefreshToken == session.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}

	// The old refresh token is single-use.
	if _, err := env.service.Refresh(ctx, session.RefreshToken); err == nil {
		t.Fatal("expected reuse of a rotated refresh token to fail")
	}
}

func TestLogoutRevokesAccessToken(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	session, err := env.service.SignUp(ctx, SignUpInput{
		Email:       "vic@example.com",
		Password:    "load-bearing",
		DisplayName: "Vic Site Lead",
	})
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	if err := env.service.Logout(ctx, session, session.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}

	if _, err := env.service.SessionFromToken(ctx, session.Token); err == nil {
		t.Fatal("access token must be rejected after logout")
	}
	if _, err := env.service.Refresh(ctx, session.RefreshToken); err == nil {
		t.Fatal("refresh token must be rejected after logout")
	}
}

func TestListUsersAdminOnly(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	users, err := env.service.ListUsers(ctx, env.admin, "client")
	if err != nil {
		t.Fatalf("admin list users: %v", err)
	}
	if len(users) != 1 || users[0].ID != env.client.UserID {
		t.Fatalf("expected the one client, got %+v", users)
	}
	for _, user := range users {
		if user.PasswordHash != "" {
			t.Fatal("password hash must be stripped from listings")
		}
	}

	if _, err := env.service.ListUsers(ctx, env.member, "client"); err == nil {
		t.Fatal("expected forbidden for non-admin")
	}
}
