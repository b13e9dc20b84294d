// Package reconcile merges externally verified identities (Google sign-in)
// into the local user directory and issues access tokens for the result.
package reconcile

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/auth"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/notify"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/userhub/internal/server/unique"
)

// Mode selects how a first-time external identity becomes a local account.
type Mode int

const (
	// DeferComplete creates the account with empty taxId/phone/password and
	// lets the user fill them in later through profile completion.
	DeferComplete Mode = iota
	// EagerComplete assigns generated taxId/phone and a random temporary
	// password at creation time.
	EagerComplete
)

// test seam
var timeNow = time.Now

// Service reconciles an external identity against the user directory.
type Service struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	gen      *unique.Generator
	issuer   *auth.Issuer
	notifier notify.Notifier
	logger   logging.Logger
	mode     Mode
}

func NewService(db *sql.DB, rm repomanager.RepositoryManager, gen *unique.Generator,
	issuer *auth.Issuer, notifier notify.Notifier, logger logging.Logger, mode Mode) *Service {
	return &Service{db: db, rm: rm, gen: gen, issuer: issuer,
		notifier: notifier, logger: logger, mode: mode}
}

// Result is the outcome of a successful reconciliation.
type Result struct {
	User        *models.User
	AccessToken string
}

// Reconcile merges the given provider profile into the directory by email.
// A matching user is refreshed in place; an unknown email becomes a new
// verified account shaped by the configured Mode. Either way the caller
// gets back an access token marked as OAuth-issued.
func (s *Service) Reconcile(ctx context.Context, profile map[string]any) (*Result, error) {

	identity, err := ExtractIdentity(profile)
	if err != nil {
		return nil, err
	}

	repo := s.rm.Users(s.db)

	user, err := repo.FindByEmail(ctx, identity.Email)
	switch {
	case err == nil:
		user, err = s.refresh(ctx, user, identity)
	case errors.Is(err, common.ErrNotFound):
		user, err = s.create(ctx, identity)
	default:
		return nil, common.Transientf("directory lookup: %v", err)
	}
	if err != nil {
		return nil, err
	}

	token, err := s.issuer.IssueAccessToken(user.ID, user.Email, true)
	if err != nil {
		return nil, common.Transientf("token issue: %v", err)
	}

	return &Result{User: user, AccessToken: token}, nil
}

// refresh updates an already known user on a repeat external sign-in.
func (s *Service) refresh(ctx context.Context, user *models.User, identity *Identity) (*models.User, error) {

	now := timeNow()
	user.LastLogin = &now

	if s.mode == DeferComplete {
		if identity.Picture != "" {
			user.Picture = identity.Picture
		}
		user.IsGoogleUser = true
		if user.GoogleID == "" {
			user.GoogleID = identity.GoogleID
		}
	}

	repo := s.rm.Users(s.db)
	user, err := repo.Save(ctx, user)
	if err != nil {
		return nil, common.Transientf("directory save: %v", err)
	}

	s.logger.Info(ctx, "external sign-in merged", "email", user.Email)
	return user, nil
}

// create provisions a brand-new account from an external identity.
func (s *Service) create(ctx context.Context, identity *Identity) (*models.User, error) {

	now := timeNow()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     emailLocalPart(identity.Email),
		FullName:     identity.Name,
		Email:        identity.Email,
		Picture:      identity.Picture,
		GoogleID:     identity.GoogleID,
		IsGoogleUser: true,
		IsVerified:   true,
		IsActive:     true,
		LastLogin:    &now,
	}

	if s.mode == EagerComplete {
		taxID, err := s.gen.TaxID(ctx)
		if err != nil {
			return nil, err
		}
		phone, err := s.gen.Phone(ctx)
		if err != nil {
			return nil, err
		}
		password, err := common.MakeRandHexString(16)
		if err != nil {
			return nil, common.Transientf("temp password: %v", err)
		}
		user.TaxID = taxID
		user.Phone = phone
		user.Password = password
	}

	repo := s.rm.Users(s.db)
	user, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, common.Transientf("directory create: %v", err)
	}

	// the write is the source of truth; a failed send is only reported
	if err := s.notifier.SendOAuthWelcome(ctx, user); err != nil {
		s.logger.Warn(ctx, "welcome email failed", "email", user.Email, "error", err.Error())
	}

	s.logger.Info(ctx, "external account created", "email", user.Email)
	return user, nil
}
