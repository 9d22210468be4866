package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/ignatzorin/taskbridge-backend/internal/logger"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
	"github.com/ignatzorin/taskbridge-backend/internal/repository"
	"github.com/ignatzorin/taskbridge-backend/internal/validation"
)

// AuthRepository описывает зависимости AuthService от слоя хранилища.
type AuthRepository interface {
	Create(ctx context.Context, user *models.User, displayName string) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetEmailVerified(ctx context.Context, userID uuid.UUID) error
	UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error
	UpdateLastLoginAt(ctx context.Context, userID uuid.UUID) error
	CreateSession(ctx context.Context, session *models.Session) error
	GetSessionByToken(ctx context.Context, refreshToken string) (*models.Session, error)
	DeleteSession(ctx context.Context, refreshToken string) error
}

// OTPLedger леджер одноразовых кодов.
type OTPLedger interface {
	Issue(ctx context.Context, purpose, subject string) (string, error)
	Check(ctx context.Context, purpose, subject, code string) error
	Consume(ctx context.Context, purpose, subject string) error
}

// Mailer отправляет письмо. Отправка не блокирует вызывающую операцию,
// ошибки доставки логируются реализацией.
type Mailer interface {
	Send(to, subject, body string)
}

// RegisterInput содержит данные пользователя при регистрации.
type RegisterInput struct {
	Email       string
	Password    string
	Username    string
	Role        string
	DisplayName string
}

// LoginInput содержит данные для входа.
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult возвращает итог регистрации или авторизации.
type AuthResult struct {
	User      *models.User
	TokenPair *TokenPair
}

// AuthService инкапсулирует регистрацию, аутентификацию и восстановление
// пароля. Коды подтверждения живут в леджере с TTL, письма уходят
// после записи и никогда не блокируют ответ.
type AuthService struct {
	repo         AuthRepository
	tokenManager *TokenManager
	otp          OTPLedger
	mailer       Mailer
}

// NewAuthService создаёт сервис аутентификации.
func NewAuthService(repo AuthRepository, tokenManager *TokenManager, otp OTPLedger, mailer Mailer) *AuthService {
	return &AuthService{
		repo:         repo,
		tokenManager: tokenManager,
		otp:          otp,
		mailer:       mailer,
	}
}

// Register создаёт нового пользователя и профиль его роли.
func (s *AuthService) Register(ctx context.Context, in RegisterInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidateUsername(in.Username); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if err := validation.ValidatePassword(in.Password); err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}
	if _, ok := models.ValidRoles[in.Role]; !ok {
		return nil, apperror.Newf(apperror.ErrCodeValidation, "недопустимая роль: %s", in.Role)
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	user := &models.User{
		Email:        strings.ToLower(strings.TrimSpace(in.Email)),
		Username:     strings.TrimSpace(in.Username),
		PasswordHash: string(passHash),
		Role:         in.Role,
		IsActive:     true,
	}

	displayName := strings.TrimSpace(in.DisplayName)
	if displayName == "" {
		displayName = user.Username
	}

	if err := s.repo.Create(ctx, user, displayName); err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, apperror.New(apperror.ErrCodeConflict, "email уже зарегистрирован")
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}

	s.sendVerificationCode(ctx, user.Email)

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Login проверяет учётные данные и возвращает токены.
func (s *AuthService) Login(ctx context.Context, in LoginInput, meta map[string]string) (*AuthResult, error) {
	if err := validation.ValidateEmail(in.Email); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	user, err := s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(in.Email)))
	if err != nil {
		return nil, apperror.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(in.Password)); err != nil {
		return nil, apperror.ErrInvalidCredentials
	}

	if err := s.repo.UpdateLastLoginAt(ctx, user.ID); err != nil {
		logger.WithComponent("auth").WithError(err).WithField("user_id", user.ID).
			Warn("не удалось обновить last_login_at")
	}

	tokenPair, err := s.issueSession(ctx, user, meta)
	if err != nil {
		return nil, err
	}

	return &AuthResult{User: user, TokenPair: tokenPair}, nil
}

// Refresh ротирует пару токенов: старая сессия удаляется, новая создаётся.
func (s *AuthService) Refresh(ctx context.Context, oldToken string, meta map[string]string) (*TokenPair, error) {
	claims, err := s.tokenManager.ParseRefresh(oldToken)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	session, err := s.repo.GetSessionByToken(ctx, oldToken)
	if err != nil {
		if errors.Is(err, repository.ErrSessionNotFound) {
			return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия не найдена")
		}
		return nil, fmt.Errorf("auth service: %w", err)
	}
	if time.Now().After(session.ExpiresAt) {
		_ = s.repo.DeleteSession(ctx, oldToken)
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "сессия истекла")
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID != session.UserID {
		return nil, apperror.New(apperror.ErrCodeUnauthorized, "refresh токен невалиден")
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, apperror.ErrUnauthorized
	}
	if !user.IsActive {
		return nil, apperror.ErrAccountInactive
	}

	if err := s.repo.DeleteSession(ctx, oldToken); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return s.issueSession(ctx, user, meta)
}

// Logout удаляет сессию по refresh токену.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.repo.DeleteSession(ctx, refreshToken)
}

// RequestEmailVerification выпускает код подтверждения почты.
func (s *AuthService) RequestEmailVerification(ctx context.Context, userID uuid.UUID) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apperror.ErrUserNotFound
	}
	if user.EmailVerified {
		return apperror.New(apperror.ErrCodeConflict, "почта уже подтверждена")
	}

	s.sendVerificationCode(ctx, user.Email)
	return nil
}

// VerifyEmail проверяет код и помечает почту подтверждённой.
func (s *AuthService) VerifyEmail(ctx context.Context, userID uuid.UUID, code string) error {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return apperror.ErrUserNotFound
	}

	if err := s.otp.Check(ctx, models.OTPPurposeEmailVerify, user.Email, code); err != nil {
		return err
	}
	if err := s.otp.Consume(ctx, models.OTPPurposeEmailVerify, user.Email); err != nil {
		return err
	}

	if err := s.repo.SetEmailVerified(ctx, userID); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	return nil
}

// RequestPasswordReset выпускает код восстановления пароля.
// Для незарегистрированного email операция молча успешна:
// существование аккаунта не раскрывается.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		logger.WithComponent("auth").WithField("email", email).
			Debug("запрос восстановления пароля для неизвестного email")
		return nil
	}

	code, err := s.otp.Issue(ctx, models.OTPPurposePasswordReset, user.Email)
	if err != nil {
		return err
	}

	s.mailer.Send(user.Email, "Восстановление пароля",
		fmt.Sprintf("Ваш код восстановления пароля: %s. Код действует 10 минут.", code))
	return nil
}

// ConfirmPasswordReset проверяет код восстановления. После успешной проверки
// у пользователя есть окно на смену пароля, пока подтверждённая запись жива.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, email, code string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.otp.Check(ctx, models.OTPPurposePasswordReset, email, code)
}

// ResetPassword меняет пароль, потребляя подтверждённый код.
func (s *AuthService) ResetPassword(ctx context.Context, email, newPassword string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	if err := validation.ValidatePassword(newPassword); err != nil {
		return apperror.Wrap(err, apperror.ErrCodeValidation, err.Error())
	}

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		return apperror.ErrUserNotFound
	}

	if err := s.otp.Consume(ctx, models.OTPPurposePasswordReset, email); err != nil {
		return err
	}

	passHash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("auth service: не удалось захешировать пароль: %w", err)
	}

	if err := s.repo.UpdatePassword(ctx, user.ID, string(passHash)); err != nil {
		return fmt.Errorf("auth service: %w", err)
	}
	return nil
}

// issueSession выпускает пару токенов и сохраняет refresh-сессию.
func (s *AuthService) issueSession(ctx context.Context, user *models.User, meta map[string]string) (*TokenPair, error) {
	tokenPair, refreshExp, err := s.tokenManager.GeneratePair(user)
	if err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	session := &models.Session{
		UserID:       user.ID,
		RefreshToken: tokenPair.RefreshToken,
		ExpiresAt:    refreshExp,
	}
	if meta != nil {
		if ua, ok := meta["user_agent"]; ok {
			session.UserAgent = &ua
		}
		if ip, ok := meta["ip"]; ok {
			session.IPAddress = &ip
		}
	}

	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("auth service: %w", err)
	}

	return tokenPair, nil
}

// sendVerificationCode выпускает и отправляет код подтверждения почты.
// Отказ выпуска (действующее окно повтора) не считается ошибкой регистрации.
func (s *AuthService) sendVerificationCode(ctx context.Context, email string) {
	code, err := s.otp.Issue(ctx, models.OTPPurposeEmailVerify, email)
	if err != nil {
		logger.WithComponent("auth").WithError(err).WithField("email", email).
			Warn("не удалось выпустить код подтверждения почты")
		return
	}

	s.mailer.Send(email, "Подтверждение почты",
		fmt.Sprintf("Ваш код подтверждения: %s. Код действует 10 минут.", code))
}
