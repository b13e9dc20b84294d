package reconcile

import (
	"context"

	"google.golang.org/api/idtoken"

	"github.com/dmitrijs2005/userhub/internal/common"
)

// test seam
var validateIDToken = idtoken.Validate

// GoogleVerifier validates Google ID tokens against a fixed OAuth client ID.
type GoogleVerifier struct {
	clientID string
}

func NewGoogleVerifier(clientID string) *GoogleVerifier {
	return &GoogleVerifier{clientID: clientID}
}

// Verify checks the token signature and audience and returns the claim set
// in the flat profile shape understood by ExtractIdentity.
func (v *GoogleVerifier) Verify(ctx context.Context, token string) (map[string]any, error) {
	payload, err := validateIDToken(ctx, token, v.clientID)
	if err != nil {
		return nil, common.Validationf("google token: %v", err)
	}
	return payload.Claims, nil
}
