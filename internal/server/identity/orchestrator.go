// Package identity is the facade the transport layer talks to. It composes
// the credential manager, the OAuth reconciler and the token issuer into a
// single operation surface with structured results whose messages never
// repeat internal storage details.
package identity

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/credentials"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/reconcile"
)

// CredentialManager is the slice of the credential service the facade needs.
type CredentialManager interface {
	Register(ctx context.Context, req credentials.RegisterRequest) (*models.User, error)
	VerifyCode(ctx context.Context, email, code string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
	Login(ctx context.Context, email string) (*models.User, error)
	UpdateProfile(ctx context.Context, email, taxID, phone string) (*models.User, error)
}

// Reconciler merges an external identity and returns the merged user plus
// an access token.
type Reconciler interface {
	Reconcile(ctx context.Context, profile map[string]any) (*reconcile.Result, error)
}

type RegisterResult struct {
	Message string `json:"message"`
	Email   string `json:"email"`
}

type StatusResult struct {
	Message string `json:"message"`
}

type ReconcileResult struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

type ProfileResult struct {
	Message string       `json:"message"`
	User    *models.User `json:"user"`
}

// Orchestrator exposes the full operation surface behind one type.
type Orchestrator struct {
	creds      CredentialManager
	reconciler Reconciler
	issuer     *auth.Issuer
}

func NewOrchestrator(creds CredentialManager, reconciler Reconciler, issuer *auth.Issuer) *Orchestrator {
	return &Orchestrator{creds: creds, reconciler: reconciler, issuer: issuer}
}

func (o *Orchestrator) Register(ctx context.Context, req credentials.RegisterRequest) (*RegisterResult, error) {
	user, err := o.creds.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return &RegisterResult{
		Message: "registration accepted, check your email for the verification code",
		Email:   user.Email,
	}, nil
}

// Login returns (nil, nil) for an unknown email. Verifying the password
// against the stored value is the transport layer's job.
func (o *Orchestrator) Login(ctx context.Context, email string) (*models.User, error) {
	return o.creds.Login(ctx, email)
}

func (o *Orchestrator) VerifyCode(ctx context.Context, email, code string) (*StatusResult, error) {
	if err := o.creds.VerifyCode(ctx, email, code); err != nil {
		return nil, err
	}
	return &StatusResult{Message: "account verified"}, nil
}

func (o *Orchestrator) ForgotPassword(ctx context.Context, email string) (*StatusResult, error) {
	if err := o.creds.ForgotPassword(ctx, email); err != nil {
		return nil, err
	}
	return &StatusResult{Message: "password reset code sent"}, nil
}

func (o *Orchestrator) ResetPassword(ctx context.Context, email, code, newPassword string) (*StatusResult, error) {
	if err := o.creds.ResetPassword(ctx, email, code, newPassword); err != nil {
		return nil, err
	}
	return &StatusResult{Message: "password updated"}, nil
}

func (o *Orchestrator) Reconcile(ctx context.Context, profile map[string]any) (*ReconcileResult, error) {
	res, err := o.reconciler.Reconcile(ctx, profile)
	if err != nil {
		return nil, err
	}
	return &ReconcileResult{User: res.User, AccessToken: res.AccessToken}, nil
}

func (o *Orchestrator) UpdateProfile(ctx context.Context, email, taxID, phone string) (*ProfileResult, error) {
	user, err := o.creds.UpdateProfile(ctx, email, taxID, phone)
	if err != nil {
		return nil, err
	}
	return &ProfileResult{Message: "profile updated", User: user}, nil
}

// IssueAccessToken signs an access token for a locally authenticated user.
func (o *Orchestrator) IssueAccessToken(user *models.User) (string, error) {
	return o.issuer.IssueAccessToken(user.ID, user.Email, user.IsGoogleUser)
}

// IssueStateToken carries taxId/phone across a redirect-based flow.
func (o *Orchestrator) IssueStateToken(taxID, phone string) (string, error) {
	return o.issuer.IssueStateToken(taxID, phone)
}

func (o *Orchestrator) VerifyStateToken(token string) (*auth.StateClaims, error) {
	return o.issuer.VerifyStateToken(token)
}

func (o *Orchestrator) VerifyAccessToken(token string) (*auth.AccessClaims, error) {
	return o.issuer.VerifyAccessToken(token)
}
