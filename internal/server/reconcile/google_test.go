package reconcile

import (
	"context"
	"errors"
	"testing"

	"google.golang.org/api/idtoken"

	"github.com/dmitrijs2005/userhub/internal/common"
)

func TestGoogleVerifier_Verify(t *testing.T) {
	orig := validateIDToken
	t.Cleanup(func() { validateIDToken = orig })

	validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		if token != "tok" || audience != "client-1" {
			t.Fatalf("unexpected args: %q %q", token, audience)
		}
		return &idtoken.Payload{Claims: map[string]any{"email": "alice@x.com", "sub": "g-1"}}, nil
	}

	claims, err := NewGoogleVerifier("client-1").Verify(context.Background(), "tok")
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims["email"] != "alice@x.com" || claims["sub"] != "g-1" {
		t.Fatalf("unexpected claims: %v", claims)
	}
}

func TestGoogleVerifier_InvalidToken(t *testing.T) {
	orig := validateIDToken
	t.Cleanup(func() { validateIDToken = orig })

	validateIDToken = func(ctx context.Context, token, audience string) (*idtoken.Payload, error) {
		return nil, errors.New("signature mismatch")
	}

	_, err := NewGoogleVerifier("client-1").Verify(context.Background(), "tok")
	if !errors.Is(err, common.ErrValidation) {
		t.Fatalf("want common.ErrValidation, got %v", err)
	}
}
