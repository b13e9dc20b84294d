// Package credentials owns the verification-code and password-reset state
// machine. The registration and reset tracks share the user's single
// verification code field, so starting one track invalidates the other's
// pending code.
package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/notify"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/repomanager"
)

// Rand supplies the randomness for verification codes; tests substitute a
// deterministic source.
type Rand interface {
	Intn(n int) int
}

type Service struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	notifier notify.Notifier
	logger   logging.Logger
	rnd      Rand
}

func NewService(db *sql.DB, rm repomanager.RepositoryManager, notifier notify.Notifier,
	logger logging.Logger, rnd Rand) *Service {
	return &Service{db: db, rm: rm, notifier: notifier, logger: logger, rnd: rnd}
}

// RegisterRequest carries the fields of a password-based registration.
type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	TaxID    string
	Phone    string
	Username string
}

// newCode returns a 6-digit numeric code, uniform in [100000, 999999].
func (s *Service) newCode() string {
	return fmt.Sprintf("%d", 100000+s.rnd.Intn(900000))
}

// Register creates a new unverified, inactive account and sends the
// confirmation code. Email and tax-ID must both be absent from the
// directory; the first violation found is reported.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {

	repo := s.rm.Users(s.db)

	if _, err := repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, common.Conflictf("email already registered")
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, common.Transientf("directory lookup: %v", err)
	}

	// accounts awaiting profile completion share the empty placeholder,
	// which the partial unique index exempts
	if req.TaxID != "" {
		if _, err := repo.FindByTaxID(ctx, req.TaxID); err == nil {
			return nil, common.Conflictf("taxId already registered")
		} else if !errors.Is(err, common.ErrNotFound) {
			return nil, common.Transientf("directory lookup: %v", err)
		}
	}

	code := s.newCode()
	user := &models.User{
		ID:               uuid.NewString(),
		Username:         defaultUsername(req.Username, req.FullName, req.Email),
		TaxID:            req.TaxID,
		FullName:         req.FullName,
		Email:            req.Email,
		Phone:            req.Phone,
		Password:         req.Password,
		VerificationCode: &code,
		IsVerified:       false,
		IsActive:         false,
	}

	user, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, common.Transientf("directory create: %v", err)
	}

	// the write is the source of truth; a failed send is only reported
	if err := s.notifier.SendConfirmation(ctx, user, code); err != nil {
		s.logger.Warn(ctx, "confirmation email failed", "email", user.Email, "error", err.Error())
	}

	return user, nil
}

// VerifyCode flips a user to verified and active when the submitted code
// matches the pending one exactly. Any mismatch leaves state unchanged.
func (s *Service) VerifyCode(ctx context.Context, email, code string) error {

	if code == "" {
		return common.Conflictf("invalid code")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Users(tx)

		user, err := repo.FindByEmailAndCode(ctx, email, code)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Conflictf("invalid code")
			}
			return common.Transientf("directory lookup: %v", err)
		}

		user.IsVerified = true
		user.IsActive = true
		user.VerificationCode = nil

		if _, err := repo.Save(ctx, user); err != nil {
			return common.Transientf("directory save: %v", err)
		}
		return nil
	})

	if err == nil {
		s.logger.Info(ctx, "account verified", "email", email)
	}
	return err
}

// ForgotPassword stores a fresh reset code on the user and sends it out.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {

	repo := s.rm.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Conflictf("email not found")
		}
		return common.Transientf("directory lookup: %v", err)
	}

	code := s.newCode()
	user.VerificationCode = &code

	if _, err := repo.Save(ctx, user); err != nil {
		return common.Transientf("directory save: %v", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, user, code); err != nil {
		s.logger.Warn(ctx, "password reset email failed", "email", user.Email, "error", err.Error())
	}

	return nil
}

// ResetPassword replaces the password when the reset code matches. The
// cleared code becomes an empty string, not nil: the two sentinels stay
// distinct downstream.
func (s *Service) ResetPassword(ctx context.Context, email, code, newPassword string) error {

	if code == "" {
		return common.Conflictf("invalid code")
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Users(tx)

		user, err := repo.FindByEmailAndCode(ctx, email, code)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return common.Conflictf("invalid code")
			}
			return common.Transientf("directory lookup: %v", err)
		}

		cleared := ""
		user.Password = newPassword
		user.VerificationCode = &cleared

		if _, err := repo.Save(ctx, user); err != nil {
			return common.Transientf("directory save: %v", err)
		}
		return nil
	})

	if err == nil {
		s.logger.Info(ctx, "password reset", "email", email)
	}
	return err
}

// Login returns the user for an email, or (nil, nil) when the email is
// unknown. An unverified account is refused. Password comparison is a
// policy of the caller, not of the engine.
func (s *Service) Login(ctx context.Context, email string) (*models.User, error) {

	repo := s.rm.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil
		}
		return nil, common.Transientf("directory lookup: %v", err)
	}

	if !user.IsVerified {
		return nil, common.Conflictf("unverified")
	}

	return user, nil
}

// UpdateProfile completes an account with its real tax-ID and phone.
// A tax-ID change is checked against all other users; keeping one's own
// value is allowed.
func (s *Service) UpdateProfile(ctx context.Context, email, taxID, phone string) (*models.User, error) {

	repo := s.rm.Users(s.db)

	user, err := repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, common.Transientf("directory lookup: %v", err)
	}

	if taxID != "" && taxID != user.TaxID {
		other, err := repo.FindByTaxID(ctx, taxID)
		if err == nil && other.ID != user.ID {
			return nil, common.Conflictf("taxId already registered")
		}
		if err != nil && !errors.Is(err, common.ErrNotFound) {
			return nil, common.Transientf("directory lookup: %v", err)
		}
	}

	user.TaxID = taxID
	user.Phone = phone

	user, err = repo.Save(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, common.Transientf("directory save: %v", err)
	}

	return user, nil
}

// defaultUsername falls back to the first token of the full name, then to
// the email local-part.
func defaultUsername(username, fullName, email string) string {
	if username != "" {
		return username
	}
	if fields := strings.Fields(fullName); len(fields) > 0 {
		return fields[0]
	}
	if at := strings.Index(email, "@"); at > 0 {
		return email[:at]
	}
	return email
}
