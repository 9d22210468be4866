package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
)

const (
	otpTTL          = 600 * time.Second
	otpResendWindow = 120 * time.Second
	otpMaxAttempts  = 3

	// После успешной проверки запись живёт дольше, чтобы зависимое
	// действие (смена пароля, подтверждение почты) успело её потребить.
	otpVerifiedTTLPasswordReset = 900 * time.Second
	otpVerifiedTTLEmailVerify   = 1800 * time.Second
)

// OTPStore часть кэш-хранилища, нужная леджеру одноразовых кодов.
type OTPStore interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Delete(ctx context.Context, key string) error
	SetNX(ctx context.Context, key string, ttl time.Duration) bool
	TTL(ctx context.Context, key string) (time.Duration, bool)
}

// otpEntry состояние кода для пары (назначение, субъект).
type otpEntry struct {
	Code      string    `json:"code"`
	CreatedAt time.Time `json:"created_at"`
	Attempts  int       `json:"attempts"`
	Verified  bool      `json:"verified"`
}

// OTPService ведёт короткоживущие коды подтверждения в кэше.
// Реляционная база не участвует: истечение обеспечивает TTL записи.
type OTPService struct {
	store OTPStore
}

// NewOTPService создаёт сервис одноразовых кодов.
func NewOTPService(store OTPStore) *OTPService {
	return &OTPService{store: store}
}

// Issue выпускает новый код для субъекта. Повторный выпуск внутри окна
// отклоняется независимо от состояния самого кода: ограничитель живёт
// под отдельным ключом со своим TTL.
func (s *OTPService) Issue(ctx context.Context, purpose, subject string) (string, error) {
	if _, ok := models.ValidOTPPurposes[purpose]; !ok {
		return "", apperror.Newf(apperror.ErrCodeValidation, "неизвестное назначение кода: %s", purpose)
	}

	if !s.store.SetNX(ctx, cache.OTPResendKey(purpose, subject), otpResendWindow) {
		return "", apperror.New(apperror.ErrCodeConflict, "код уже отправлен, повторите запрос позже")
	}

	code, err := generateOTPCode()
	if err != nil {
		return "", apperror.Wrap(err, apperror.ErrCodeInternal, "не удалось сгенерировать код")
	}

	entry := otpEntry{Code: code, CreatedAt: time.Now()}
	s.store.Set(ctx, cache.OTPKey(purpose, subject), entry, otpTTL)

	return code, nil
}

// Check проверяет код. Неверный код увеличивает счётчик попыток и
// перезаписывает запись с оставшимся TTL; после третьей неверной попытки
// запись удаляется, и следующая проверка сообщает об истечении, а не о
// неверном коде. Верный код помечает запись подтверждённой и продлевает
// её жизнь на окно зависимого действия.
func (s *OTPService) Check(ctx context.Context, purpose, subject, code string) error {
	key := cache.OTPKey(purpose, subject)

	var entry otpEntry
	if !s.store.Get(ctx, key, &entry) {
		return apperror.New(apperror.ErrCodeNotFound, "код истёк или не был запрошен")
	}

	if entry.Code != code {
		entry.Attempts++
		if entry.Attempts >= otpMaxAttempts {
			_ = s.store.Delete(ctx, key)
			return apperror.New(apperror.ErrCodeConflict, "превышено число попыток, запросите новый код")
		}

		remaining, ok := s.store.TTL(ctx, key)
		if !ok || remaining <= 0 {
			remaining = otpTTL
		}
		s.store.Set(ctx, key, entry, remaining)

		return apperror.New(apperror.ErrCodeValidation, "неверный код")
	}

	entry.Verified = true
	s.store.Set(ctx, key, entry, verifiedTTL(purpose))

	return nil
}

// Consume потребляет подтверждённый код. Вызывается зависимым действием
// ровно один раз: запись удаляется, повторное потребление невозможно.
func (s *OTPService) Consume(ctx context.Context, purpose, subject string) error {
	key := cache.OTPKey(purpose, subject)

	var entry otpEntry
	if !s.store.Get(ctx, key, &entry) || !entry.Verified {
		return apperror.New(apperror.ErrCodeUnauthorized, "код не подтверждён или истёк")
	}

	_ = s.store.Delete(ctx, key)
	return nil
}

func verifiedTTL(purpose string) time.Duration {
	if purpose == models.OTPPurposeEmailVerify {
		return otpVerifiedTTLEmailVerify
	}
	return otpVerifiedTTLPasswordReset
}

func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
