package credentials

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/dmitrijs2005/userhub/internal/common"
	"github.com/dmitrijs2005/userhub/internal/dbx"
	"github.com/dmitrijs2005/userhub/internal/logging"
	"github.com/dmitrijs2005/userhub/internal/server/models"
	"github.com/dmitrijs2005/userhub/internal/server/repositories/users"
)

// --- fakes ---

// memoryDirectory is an in-memory users.Repository keyed by email.
type memoryDirectory struct {
	byEmail map[string]*models.User
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{byEmail: map[string]*models.User{}}
}

func (m *memoryDirectory) size() int { return len(m.byEmail) }

func (m *memoryDirectory) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.ID == id {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memoryDirectory) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := m.byEmail[email]; ok {
		return copyUser(u), nil
	}
	return nil, common.ErrNotFound
}

// FindByTaxID matches exactly, like the SQL `WHERE tax_id = $1` does: an
// empty argument finds any account still holding the empty placeholder.
func (m *memoryDirectory) FindByTaxID(ctx context.Context, taxID string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.TaxID == taxID {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memoryDirectory) FindByPhone(ctx context.Context, phone string) (*models.User, error) {
	for _, u := range m.byEmail {
		if u.Phone == phone {
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func (m *memoryDirectory) FindByEmailAndCode(ctx context.Context, email, code string) (*models.User, error) {
	u, ok := m.byEmail[email]
	if !ok || u.VerificationCode == nil || *u.VerificationCode != code {
		return nil, common.ErrNotFound
	}
	return copyUser(u), nil
}

func (m *memoryDirectory) Create(ctx context.Context, u *models.User) (*models.User, error) {
	if _, ok := m.byEmail[u.Email]; ok {
		return nil, common.Conflictf("email already registered")
	}
	m.byEmail[u.Email] = copyUser(u)
	return copyUser(u), nil
}

func (m *memoryDirectory) Save(ctx context.Context, u *models.User) (*models.User, error) {
	for email, existing := range m.byEmail {
		if existing.ID == u.ID {
			delete(m.byEmail, email)
			m.byEmail[u.Email] = copyUser(u)
			return copyUser(u), nil
		}
	}
	return nil, common.ErrNotFound
}

func copyUser(u *models.User) *models.User {
	c := *u
	if u.VerificationCode != nil {
		code := *u.VerificationCode
		c.VerificationCode = &code
	}
	return &c
}

type fakeRepoManager struct {
	dir *memoryDirectory
}

func (m *fakeRepoManager) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository          { return m.dir }

type fakeNotifier struct {
	confirmations []string // codes sent
	resets        []string
	welcomes      int
	err           error
}

func (f *fakeNotifier) SendConfirmation(ctx context.Context, u *models.User, code string) error {
	f.confirmations = append(f.confirmations, code)
	return f.err
}
func (f *fakeNotifier) SendPasswordReset(ctx context.Context, u *models.User, code string) error {
	f.resets = append(f.resets, code)
	return f.err
}
func (f *fakeNotifier) SendOAuthWelcome(ctx context.Context, u *models.User) error {
	f.welcomes++
	return f.err
}

// fixedRand always yields the same code.
type fixedRand struct{ v int }

func (f fixedRand) Intn(n int) int { return f.v % n }

func discardLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func newTestService(t *testing.T, dir *memoryDirectory, n *fakeNotifier) (*Service, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	svc := NewService(db, &fakeRepoManager{dir: dir}, n, discardLogger(), fixedRand{v: 382913})
	return svc, mock, db
}

var testRegister = RegisterRequest{
	Email:    "alice@x.com",
	Password: "hash-of-secret",
	FullName: "Alice Silva",
	TaxID:    "12345678901",
	Phone:    "+5511999990000",
}

// --- Register ---

func TestRegister_CreatesUnverifiedInactiveWithCode(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, _, db := newTestService(t, dir, n)
	defer db.Close()

	user, err := svc.Register(context.Background(), testRegister)
	if err != nil {
		t.Fatalf("Register error: %v", err)
	}

	stored := dir.byEmail["alice@x.com"]
	if stored == nil {
		t.Fatal("user not persisted")
	}
	if stored.IsVerified || stored.IsActive {
		t.Fatalf("expected unverified+inactive, got %+v", stored)
	}
	if stored.VerificationCode == nil || !regexp.MustCompile(`^[0-9]{6}$`).MatchString(*stored.VerificationCode) {
		t.Fatalf("unexpected verification code: %v", stored.VerificationCode)
	}
	if len(n.confirmations) != 1 || n.confirmations[0] != *stored.VerificationCode {
		t.Fatalf("confirmation code mismatch: sent %v stored %v", n.confirmations, *stored.VerificationCode)
	}
	if user.Username != "Alice" {
		t.Fatalf("expected username defaulted from full name, got %q", user.Username)
	}
}

func TestRegister_DuplicateEmailLeavesDirectoryUnchanged(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, _, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("first Register error: %v", err)
	}
	before := dir.size()

	req := testRegister
	req.TaxID = "99999999999"
	_, err := svc.Register(context.Background(), req)
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
	if dir.size() != before {
		t.Fatalf("directory size changed: %d -> %d", before, dir.size())
	}
	if len(n.confirmations) != 1 {
		t.Fatalf("no second confirmation expected, got %d", len(n.confirmations))
	}
}

func TestRegister_DuplicateTaxID(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("first Register error: %v", err)
	}

	req := testRegister
	req.Email = "bob@x.com"
	_, err := svc.Register(context.Background(), req)
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
	if !regexp.MustCompile(`taxId already registered`).MatchString(err.Error()) {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestRegister_NotificationFailureDoesNotUndoCreate(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{err: errors.New("smtp down")}
	svc, _, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if dir.size() != 1 {
		t.Fatalf("user must stay persisted, directory size %d", dir.size())
	}
}

// --- VerifyCode scenario (register, wrong code, right code) ---

func TestVerifyCode_Scenario(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, mock, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	issued := n.confirmations[0]

	// wrong code: conflict, no state change
	mock.ExpectBegin()
	mock.ExpectRollback()
	err := svc.VerifyCode(context.Background(), "alice@x.com", "000000")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
	if dir.byEmail["alice@x.com"].IsVerified {
		t.Fatal("user must remain unverified after wrong code")
	}

	// right code: verified, active, code cleared to nil
	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := svc.VerifyCode(context.Background(), "alice@x.com", issued); err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}
	stored := dir.byEmail["alice@x.com"]
	if !stored.IsVerified || !stored.IsActive {
		t.Fatalf("expected verified+active, got %+v", stored)
	}
	if stored.VerificationCode != nil {
		t.Fatalf("expected nil code after verification, got %q", *stored.VerificationCode)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("sql expectations: %v", err)
	}
}

func TestVerifyCode_EmptyCodeNeverMatchesClearedUser(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	err := svc.VerifyCode(context.Background(), "alice@x.com", "")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

// --- ForgotPassword / ResetPassword ---

func TestForgotPassword_UnknownEmail(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	err := svc.ForgotPassword(context.Background(), "ghost@x.com")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
	if !regexp.MustCompile(`email not found`).MatchString(err.Error()) {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestForgotThenReset_ChangesPasswordAndClearsCodeToEmpty(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, mock, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := svc.ForgotPassword(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}
	if len(n.resets) != 1 {
		t.Fatalf("expected one reset email, got %d", len(n.resets))
	}
	code := n.resets[0]

	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := svc.ResetPassword(context.Background(), "alice@x.com", code, "new-secret"); err != nil {
		t.Fatalf("ResetPassword error: %v", err)
	}

	stored := dir.byEmail["alice@x.com"]
	if stored.Password != "new-secret" {
		t.Fatalf("password not replaced: %q", stored.Password)
	}
	if stored.VerificationCode == nil || *stored.VerificationCode != "" {
		t.Fatalf("expected empty-string code after reset, got %v", stored.VerificationCode)
	}
}

func TestResetPassword_WrongCode(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, mock, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	if err := svc.ForgotPassword(context.Background(), "alice@x.com"); err != nil {
		t.Fatalf("ForgotPassword error: %v", err)
	}

	mock.ExpectBegin()
	mock.ExpectRollback()
	err := svc.ResetPassword(context.Background(), "alice@x.com", "000000", "new-secret")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
	if dir.byEmail["alice@x.com"].Password != testRegister.Password {
		t.Fatal("password must not change on wrong code")
	}
}

// --- Login ---

func TestLogin_UnknownEmailReturnsNilNil(t *testing.T) {
	svc, _, db := newTestService(t, newMemoryDirectory(), &fakeNotifier{})
	defer db.Close()

	user, err := svc.Login(context.Background(), "ghost@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if user != nil {
		t.Fatalf("expected nil user, got %+v", user)
	}
}

func TestLogin_UnverifiedIsConflict(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	_, err := svc.Login(context.Background(), "alice@x.com")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

func TestLogin_VerifiedReturnsUser(t *testing.T) {
	dir := newMemoryDirectory()
	n := &fakeNotifier{}
	svc, mock, db := newTestService(t, dir, n)
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	mock.ExpectBegin()
	mock.ExpectCommit()
	if err := svc.VerifyCode(context.Background(), "alice@x.com", n.confirmations[0]); err != nil {
		t.Fatalf("VerifyCode error: %v", err)
	}

	user, err := svc.Login(context.Background(), "alice@x.com")
	if err != nil {
		t.Fatalf("Login error: %v", err)
	}
	if user == nil || user.Email != "alice@x.com" {
		t.Fatalf("unexpected user: %+v", user)
	}
}

// --- UpdateProfile ---

func TestUpdateProfile_UnknownUser(t *testing.T) {
	svc, _, db := newTestService(t, newMemoryDirectory(), &fakeNotifier{})
	defer db.Close()

	_, err := svc.UpdateProfile(context.Background(), "ghost@x.com", "123", "+55")
	if !errors.Is(err, common.ErrNotFound) {
		t.Fatalf("want common.ErrNotFound, got %v", err)
	}
}

func TestUpdateProfile_TaxIDTakenByOther(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	req := testRegister
	req.Email = "bob@x.com"
	req.TaxID = "22222222222"
	req.Phone = "+5511888880000"
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("second Register error: %v", err)
	}

	_, err := svc.UpdateProfile(context.Background(), "bob@x.com", testRegister.TaxID, "+5511888880000")
	if !errors.Is(err, common.ErrConflict) {
		t.Fatalf("want common.ErrConflict, got %v", err)
	}
}

func TestUpdateProfile_SelfMatchAllowed(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}

	user, err := svc.UpdateProfile(context.Background(), "alice@x.com", testRegister.TaxID, "+5511777770000")
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if user.Phone != "+5511777770000" {
		t.Fatalf("phone not updated: %q", user.Phone)
	}
}

func TestUpdateProfile_CompletesOAuthAccount(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	dir.byEmail["carol@x.com"] = &models.User{
		ID: "oauth-1", Email: "carol@x.com", IsVerified: true, IsActive: true,
		IsGoogleUser: true,
	}

	user, err := svc.UpdateProfile(context.Background(), "carol@x.com", "33333333333", "+5511666660000")
	if err != nil {
		t.Fatalf("UpdateProfile error: %v", err)
	}
	if user.TaxID != "33333333333" || user.Phone != "+5511666660000" {
		t.Fatalf("profile not completed: %+v", user)
	}
}

func TestRegister_EmptyTaxIDSkipsUniquenessCheck(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	// an OAuth-created account still holding the empty placeholder
	dir.byEmail["dave@x.com"] = &models.User{
		ID: "oauth-2", Email: "dave@x.com", IsVerified: true, IsActive: true,
		IsGoogleUser: true,
	}

	req := testRegister
	req.TaxID = ""
	req.Phone = ""
	if _, err := svc.Register(context.Background(), req); err != nil {
		t.Fatalf("Register without taxId must not collide with the placeholder: %v", err)
	}
}

func TestUpdateProfile_ClearingTaxIDSkipsUniquenessCheck(t *testing.T) {
	dir := newMemoryDirectory()
	svc, _, db := newTestService(t, dir, &fakeNotifier{})
	defer db.Close()

	if _, err := svc.Register(context.Background(), testRegister); err != nil {
		t.Fatalf("Register error: %v", err)
	}
	dir.byEmail["dave@x.com"] = &models.User{
		ID: "oauth-2", Email: "dave@x.com", IsVerified: true, IsActive: true,
		IsGoogleUser: true,
	}

	user, err := svc.UpdateProfile(context.Background(), "alice@x.com", "", testRegister.Phone)
	if err != nil {
		t.Fatalf("clearing taxId must not collide with the placeholder: %v", err)
	}
	if user.TaxID != "" {
		t.Fatalf("taxId not cleared: %q", user.TaxID)
	}
}
