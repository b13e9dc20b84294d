package users

import (
	"context"

	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// Repository is the user directory. All unique lookups are exact-match;
// a missing record is reported as common.ErrNotFound.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByTaxID(ctx context.Context, taxID string) (*models.User, error)
	FindByPhone(ctx context.Context, phone string) (*models.User, error)
	// FindByEmailAndCode matches only users with a non-null pending code.
	FindByEmailAndCode(ctx context.Context, email, code string) (*models.User, error)
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// Save upserts the full record by id.
	Save(ctx context.Context, user *models.User) (*models.User, error)
}
