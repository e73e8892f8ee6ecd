package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmynk/groupsplit/internal/models"
)

func TestJWTRoundTrip(t *testing.T) {
	m := NewJWTManager("secret")
	token, err := m.Generate(&models.User{ID: "u1", Email: "a@example.com", FirstName: "Ada"}, time.Hour)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	claims, err := m.Validate(token)
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	user := claims.User()
	if user.ID != "u1" || user.FirstName != "Ada" || user.Email != "a@example.com" {
		t.Errorf("unexpected profile: %+v", user)
	}
}

func TestJWTRejects(t *testing.T) {
	m := NewJWTManager("secret")

	other, _ := NewJWTManager("other").Generate(&models.User{ID: "u1"}, time.Hour)
	expired, _ := m.Generate(&models.User{ID: "u1"}, -time.Minute)
	noUser, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte("secret"))

	tests := []struct {
		name  string
		token string
	}{
		{"wrong secret", other},
		{"expired", expired},
		{"garbage", "not-a-token"},
		{"no user id", noUser},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := m.Validate(tt.token); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("expected ErrInvalidToken, got %v", err)
			}
		})
	}
}
