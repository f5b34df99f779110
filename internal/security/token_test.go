package security

import (
	"strings"
	"testing"
	"time"

	"github.com/takumi/hiretrack/internal/model"
)

func testUser() *model.User {
	return &model.User{
		ID:    "user-1",
		Email: "admin@demo.com",
		Role:  model.RoleAdmin,
	}
}

func TestTokenProvider_GenerateAndParse(t *testing.T) {
	p := NewTokenProvider("test-secret")

	token, err := p.Generate(testUser(), "session-token-1", 8*time.Hour)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	claims, err := p.Parse(token)
	if err != nil {
		t.Fatalf("Parse returned error: %v", err)
	}

	if claims.UserID != "user-1" {
		t.Errorf("UserID = %q, want %q", claims.UserID, "user-1")
	}
	if claims.Email != "admin@demo.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "admin@demo.com")
	}
	if claims.Role != "ADMIN" {
		t.Errorf("Role = %q, want %q", claims.Role, "ADMIN")
	}
	if claims.SessionID != "session-token-1" {
		t.Errorf("SessionID = %q, want %q", claims.SessionID, "session-token-1")
	}
}

func TestTokenProvider_Parse_InvalidFormat(t *testing.T) {
	p := NewTokenProvider("test-secret")

	cases := []string{
		"",
		"not-a-token",
		"only.two",
		"a.b.c.d",
	}
	for _, tc := range cases {
		if _, err := p.Parse(tc); err == nil {
			t.Errorf("Parse(%q) はエラーを返すこと", tc)
		}
	}
}

func TestTokenProvider_Parse_TamperedSignature(t *testing.T) {
	p := NewTokenProvider("test-secret")

	token, err := p.Generate(testUser(), "session-token-1", time.Hour)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	parts := strings.Split(token, ".")
	tampered := parts[0] + "." + parts[1] + ".AAAA" + parts[2][4:]

	if _, err := p.Parse(tampered); err == nil {
		t.Error("署名改ざんされたトークンは拒否されること")
	}
}

func TestTokenProvider_Parse_WrongSecret(t *testing.T) {
	p := NewTokenProvider("secret-a")
	other := NewTokenProvider("secret-b")

	token, err := p.Generate(testUser(), "session-token-1", time.Hour)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	if _, err := other.Parse(token); err == nil {
		t.Error("別のシークレットで署名されたトークンは拒否されること")
	}
}

func TestTokenProvider_Parse_Expired(t *testing.T) {
	p := NewTokenProvider("test-secret")

	token, err := p.Generate(testUser(), "session-token-1", -time.Minute)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}

	_, err = p.Parse(token)
	if err != ErrTokenExpired {
		t.Errorf("期限切れトークンはErrTokenExpiredを返すこと: got %v", err)
	}
}
