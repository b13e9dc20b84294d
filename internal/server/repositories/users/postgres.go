package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/server/models"
)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

const userColumns = `id, username, tax_id, full_name, email, phone, password,
	 verification_code, is_verified, is_active, is_google_user, google_id,
	 picture, last_login, created_at, updated_at`

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID, &user.Username, &user.TaxID, &user.FullName, &user.Email,
		&user.Phone, &user.Password, &user.VerificationCode, &user.IsVerified,
		&user.IsActive, &user.IsGoogleUser, &user.GoogleID, &user.Picture,
		&user.LastLogin, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) findBy(ctx context.Context, column, value string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, value))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return r.findBy(ctx, "id", id)
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findBy(ctx, "email", email)
}

func (r *PostgresRepository) FindByTaxID(ctx context.Context, taxID string) (*models.User, error) {
	return r.findBy(ctx, "tax_id", taxID)
}

func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.findBy(ctx, "phone", phone)
}

func (r *PostgresRepository) FindByEmailAndCode(ctx context.Context, email, code string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users
	 WHERE email = $1 AND verification_code = $2`
	return scanUser(r.db.QueryRowContext(ctx, query, email, code))
}

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`INSERT INTO users (id, username, tax_id, full_name, email, phone, password,
	      verification_code, is_verified, is_active, is_google_user, google_id,
	      picture, last_login)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		 RETURNING created_at, updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.TaxID, user.FullName, user.Email,
		user.Phone, user.Password, user.VerificationCode, user.IsVerified,
		user.IsActive, user.IsGoogleUser, user.GoogleID, user.Picture,
		user.LastLogin).Scan(&user.CreatedAt, &user.UpdatedAt)

	if err != nil {
		return nil, translateUniqueViolation(err)
	}

	return user, nil
}

func (r *PostgresRepository) Save(ctx context.Context, user *models.User) (*models.User, error) {

	query :=
		`UPDATE users SET username = $2, tax_id = $3, full_name = $4, email = $5,
	      phone = $6, password = $7, verification_code = $8, is_verified = $9,
	      is_active = $10, is_google_user = $11, google_id = $12, picture = $13,
	      last_login = $14, updated_at = now()
	     WHERE id = $1
		 RETURNING updated_at
		 `

	err := r.db.QueryRowContext(ctx, query,
		user.ID, user.Username, user.TaxID, user.FullName, user.Email,
		user.Phone, user.Password, user.VerificationCode, user.IsVerified,
		user.IsActive, user.IsGoogleUser, user.GoogleID, user.Picture,
		user.LastLogin).Scan(&user.UpdatedAt)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, translateUniqueViolation(err)
	}

	return user, nil
}

// translateUniqueViolation maps the storage layer's own uniqueness
// constraint, the authoritative guard behind the generate-then-check
// pattern, to the conflict taxonomy.
func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
		switch pgErr.ConstraintName {
		case "users_email_key":
			return common.Conflictf("email already registered")
		case "users_tax_id_key":
			return common.Conflictf("taxId already registered")
		case "users_phone_key":
			return common.Conflictf("phone already registered")
		default:
			return common.Conflictf("duplicate value")
		}
	}
	return fmt.Errorf("db error: %w", err)
}
