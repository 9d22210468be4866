package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
)

type mockAuthRepo struct {
	mock.Mock
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User, displayName string) error {
	args := m.Called(ctx, user, displayName)
	if args.Error(0) == nil {
		user.ID = uuid.New()
	}
	return args.Error(0)
}

func (m *mockAuthRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *mockAuthRepo) SetEmailVerified(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	args := m.Called(ctx, userID, passwordHash)
	return args.Error(0)
}

func (m *mockAuthRepo) UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

func (m *mockAuthRepo) CreateSession(ctx context.Context, session *models.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockAuthRepo) GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Session), args.Error(1)
}

func (m *mockAuthRepo) DeleteSession(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

// fakeMailer запоминает отправленные письма.
type fakeMailer struct {
	mu   sync.Mutex
	sent []string
}

func (f *fakeMailer) Send(to, subject, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, to)
}

func testTokenManager() *TokenManager {
	return NewTokenManager("access-secret-for-tests", "refresh-secret-for-tests", 15*time.Minute, 720*time.Hour)
}

func testAuthService(repo *mockAuthRepo) (*AuthService, *fakeMailer) {
	mailer := &fakeMailer{}
	otp := NewOTPService(newFakeOTPStore())
	return NewAuthService(repo, testTokenManager(), otp, mailer), mailer
}

func TestAuthService_Register_Success(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User"), "ivan").Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	result, err := svc.Register(ctx, RegisterInput{
		Email:    "Ivan@Example.com",
		Password: "Str0ngPass",
		Username: "ivan",
		Role:     models.RoleFreelancer,
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, "ivan@example.com", result.User.Email)
	assert.Equal(t, models.RoleFreelancer, result.User.Role)
	assert.True(t, result.User.IsActive)
	assert.NotEmpty(t, result.TokenPair.AccessToken)
	assert.NotEmpty(t, result.TokenPair.RefreshToken)
	repo.AssertExpectations(t)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@example.com",
		Password: "short",
		Username: "ivan",
		Role:     models.RoleClient,
	}, nil)

	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestAuthService_Register_AdminRoleRejected(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)

	_, err := svc.Register(context.Background(), RegisterInput{
		Email:    "ivan@example.com",
		Password: "Str0ngPass",
		Username: "ivan",
		Role:     models.RoleAdmin,
	}, nil)

	assert.True(t, apperror.IsValidation(err))
}

func TestAuthService_Register_EmailTaken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	repo.On("Create", ctx, mock.AnythingOfType("*models.User"), mock.Anything).
		Return(repository.ErrEmailTaken)

	_, err := svc.Register(ctx, RegisterInput{
		Email:    "ivan@example.com",
		Password: "Str0ngPass",
		Username: "ivan",
		Role:     models.RoleClient,
	}, nil)

	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_Login_WrongPassword(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	hash, err := bcrypt.GenerateFromPassword([]byte("Corr3ctPass"), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", PasswordHash: string(hash), IsActive: true}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)

	_, err = svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "Wr0ngPass"}, nil)

	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_UnknownEmailIndistinguishable(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, repository.ErrUserNotFound)

	_, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "Whatever1"}, nil)

	// Неизвестный email и неверный пароль дают одну и ту же ошибку.
	assert.ErrorIs(t, err, apperror.ErrInvalidCredentials)
}

func TestAuthService_Login_BlockedAccount(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", IsActive: false}
	repo.On("GetByEmail", ctx, "ivan@example.com").Return(user, nil)

	_, err := svc.Login(ctx, LoginInput{Email: "ivan@example.com", Password: "Str0ngPass"}, nil)

	assert.ErrorIs(t, err, apperror.ErrAccountInactive)
}

func TestAuthService_Refresh_RotatesSession(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", Role: models.RoleClient, IsActive: true}
	pair, _, err := testTokenManager().GeneratePair(user)
	require.NoError(t, err)

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    time.Now().Add(time.Hour),
	}
	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(session, nil)
	repo.On("GetByID", ctx, user.ID).Return(user, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)
	repo.On("CreateSession", ctx, mock.AnythingOfType("*models.Session")).Return(nil)

	newPair, err := svc.Refresh(ctx, pair.RefreshToken, nil)

	require.NoError(t, err)
	assert.NotEmpty(t, newPair.RefreshToken)
	assert.NotEqual(t, pair.RefreshToken, newPair.RefreshToken)
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_ExpiredSessionIsDropped(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Role: models.RoleClient, IsActive: true}
	pair, _, err := testTokenManager().GeneratePair(user)
	require.NoError(t, err)

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    time.Now().Add(-time.Minute),
	}
	repo.On("GetSessionByToken", ctx, pair.RefreshToken).Return(session, nil)
	repo.On("DeleteSession", ctx, pair.RefreshToken).Return(nil)

	_, err = svc.Refresh(ctx, pair.RefreshToken, nil)

	assert.True(t, apperror.IsUnauthorized(err))
	repo.AssertCalled(t, "DeleteSession", ctx, pair.RefreshToken)
}

func TestAuthService_Refresh_GarbageToken(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)

	_, err := svc.Refresh(context.Background(), "not-a-jwt", nil)

	assert.True(t, apperror.IsUnauthorized(err))
	repo.AssertNotCalled(t, "GetSessionByToken", mock.Anything, mock.Anything)
}

func TestAuthService_RequestEmailVerification_AlreadyVerified(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, _ := testAuthService(repo)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", EmailVerified: true, IsActive: true}
	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	err := svc.RequestEmailVerification(ctx, user.ID)

	assert.True(t, apperror.IsConflict(err))
}

func TestAuthService_PasswordReset_FullFlow(t *testing.T) {
	repo := new(mockAuthRepo)
	mailer := &fakeMailer{}
	store := newFakeOTPStore()
	otp := NewOTPService(store)
	svc := NewAuthService(repo, testTokenManager(), otp, mailer)
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", IsActive: true}
	repo.On("GetByEmail", ctx, user.Email).Return(user, nil)
	repo.On("UpdatePassword", ctx, user.ID, mock.AnythingOfType("string")).Return(nil)

	require.NoError(t, svc.RequestPasswordReset(ctx, "Ivan@Example.com"))
	require.Len(t, mailer.sent, 1)

	// Достаём код из леджера, как если бы пользователь прочитал письмо.
	var entry otpEntry
	require.True(t, store.Get(ctx, "otp:password_reset:ivan@example.com", &entry))

	require.NoError(t, svc.ConfirmPasswordReset(ctx, user.Email, entry.Code))
	require.NoError(t, svc.ResetPassword(ctx, user.Email, "N3wStrongPass"))

	repo.AssertCalled(t, "UpdatePassword", ctx, user.ID, mock.AnythingOfType("string"))

	// Код потреблён, второй сброс по нему невозможен.
	err := svc.ResetPassword(ctx, user.Email, "An0therPass")
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestAuthService_RequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	repo := new(mockAuthRepo)
	svc, mailer := testAuthService(repo)
	ctx := context.Background()

	repo.On("GetByEmail", ctx, "ghost@example.com").Return(nil, errors.New("sql: no rows in result set"))

	// Существование аккаунта не раскрывается.
	require.NoError(t, svc.RequestPasswordReset(ctx, "ghost@example.com"))
	assert.Empty(t, mailer.sent)
}

func TestAuthService_VerifyEmail_WrongCode(t *testing.T) {
	repo := new(mockAuthRepo)
	store := newFakeOTPStore()
	svc := NewAuthService(repo, testTokenManager(), NewOTPService(store), &fakeMailer{})
	ctx := context.Background()

	user := &models.User{ID: uuid.New(), Email: "ivan@example.com", IsActive: true}
	repo.On("GetByID", ctx, user.ID).Return(user, nil)

	code, err := NewOTPService(store).Issue(ctx, models.OTPPurposeEmailVerify, user.Email)
	require.NoError(t, err)

	wrong := "999999"
	if wrong == code {
		wrong = "999998"
	}
	err = svc.VerifyEmail(ctx, user.ID, wrong)

	assert.True(t, apperror.IsValidation(err))
	repo.AssertNotCalled(t, "SetEmailVerified", mock.Anything, mock.Anything)
}
