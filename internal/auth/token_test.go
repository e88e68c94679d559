// ABOUTME: Unit tests for JWT token issuing and verification
// ABOUTME: Tests round trips, wrong secrets, expiry and secret separation

package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/2389/trellis/internal/store"
)

func newTestIssuer() *Issuer {
	return NewIssuer([]byte("access-secret-for-tests"), []byte("refresh-secret-for-tests"), 0, 0)
}

var testUser = &store.User{ID: "user-123", Email: "alice@example.com", Role: store.RoleTeamLead}

func TestIssuer_RoundTrip(t *testing.T) {
	issuer := newTestIssuer()

	pair, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	claims, err := issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if claims.UserID() != testUser.ID {
		t.Errorf("sub = %q, want %q", claims.UserID(), testUser.ID)
	}
	if claims.Email != testUser.Email {
		t.Errorf("email = %q, want %q", claims.Email, testUser.Email)
	}
	if claims.Role != testUser.Role {
		t.Errorf("role = %q, want %q", claims.Role, testUser.Role)
	}

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if refresh.UserID() != testUser.ID {
		t.Errorf("refresh sub = %q, want %q", refresh.UserID(), testUser.ID)
	}
}

func TestIssuer_Lifetimes(t *testing.T) {
	issuer := newTestIssuer()
	fixed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	issuer.now = func() time.Time { return fixed }

	pair, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	access, err := issuer.Verify(pair.AccessToken)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got := access.ExpiresAt.Sub(access.IssuedAt.Time); got != DefaultAccessTTL {
		t.Errorf("access lifetime = %v, want %v", got, DefaultAccessTTL)
	}

	refresh, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}
	if got := refresh.ExpiresAt.Sub(refresh.IssuedAt.Time); got != DefaultRefreshTTL {
		t.Errorf("refresh lifetime = %v, want %v", got, DefaultRefreshTTL)
	}
}

func TestIssuer_SecretsAreSeparate(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if _, err := issuer.Verify(pair.RefreshToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("Verify(refresh) error = %v, want ErrInvalidToken", err)
	}
	if _, err := issuer.VerifyRefresh(pair.AccessToken); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("VerifyRefresh(access) error = %v, want ErrInvalidToken", err)
	}
}

func TestIssuer_InvalidToken(t *testing.T) {
	issuer := newTestIssuer()

	tests := []struct {
		name  string
		token string
	}{
		{
			name:  "empty token",
			token: "",
		},
		{
			name:  "garbage token",
			token: "not-a-jwt-token",
		},
		{
			name:  "malformed JWT",
			token: "header.payload.signature",
		},
		{
			name: "wrong secret",
			token: func() string {
				other := NewIssuer([]byte("different-secret"), []byte("different-refresh"), 0, 0)
				pair, _ := other.Issue(testUser)
				return pair.AccessToken
			}(),
		},
		{
			name: "no expiry",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-123"})
				s, _ := tok.SignedString([]byte("access-secret-for-tests"))
				return s
			}(),
		},
		{
			name: "unsigned",
			token: func() string {
				tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "user-123", "exp": time.Now().Add(time.Hour).Unix()})
				s, _ := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
				return s
			}(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := issuer.Verify(tt.token)
			if !errors.Is(err, ErrInvalidToken) {
				t.Errorf("Verify() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestIssuer_ExpiredToken(t *testing.T) {
	issuer := newTestIssuer()
	issuer.now = func() time.Time { return time.Now().Add(-time.Hour) }

	pair, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	issuer.now = time.Now
	if _, err := issuer.Verify(pair.AccessToken); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("Verify() error = %v, want ErrExpiredToken", err)
	}
	// The refresh token is still inside its seven days.
	if _, err := issuer.VerifyRefresh(pair.RefreshToken); err != nil {
		t.Errorf("VerifyRefresh() error = %v", err)
	}
}

func TestIssuer_MissingSubject(t *testing.T) {
	issuer := newTestIssuer()
	token, err := issuer.sign("", "a@example.com", store.RoleUser, issuer.accessSecret, time.Hour)
	if err != nil {
		t.Fatalf("sign() error = %v", err)
	}
	if _, err := issuer.Verify(token); !errors.Is(err, ErrMissingClaim) {
		t.Errorf("Verify() error = %v, want ErrMissingClaim", err)
	}
}

func TestIssuer_AccessKeepsIdentity(t *testing.T) {
	issuer := newTestIssuer()
	pair, err := issuer.Issue(testUser)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	claims, err := issuer.VerifyRefresh(pair.RefreshToken)
	if err != nil {
		t.Fatalf("VerifyRefresh() error = %v", err)
	}

	token, err := issuer.Access(claims)
	if err != nil {
		t.Fatalf("Access() error = %v", err)
	}
	got, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
	if got.UserID() != testUser.ID || got.Email != testUser.Email || got.Role != testUser.Role {
		t.Errorf("claims = %+v, want identity of %+v", got, testUser)
	}
}
