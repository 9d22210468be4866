package service

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignatzorin/taskbridge-backend/internal/cache"
	"github.com/ignatzorin/taskbridge-backend/internal/models"
	"github.com/ignatzorin/taskbridge-backend/internal/pkg/apperror"
)

// fakeOTPStore хранит записи в памяти и запоминает TTL каждого ключа,
// чтобы тесты могли проверить перезапись с оставшимся временем жизни.
type fakeOTPStore struct {
	values map[string][]byte
	ttls   map[string]time.Duration
}

func newFakeOTPStore() *fakeOTPStore {
	return &fakeOTPStore{
		values: make(map[string][]byte),
		ttls:   make(map[string]time.Duration),
	}
}

func (f *fakeOTPStore) Get(_ context.Context, key string, dest interface{}) bool {
	raw, ok := f.values[key]
	if !ok {
		return false
	}
	return json.Unmarshal(raw, dest) == nil
}

func (f *fakeOTPStore) Set(_ context.Context, key string, value interface{}, ttl time.Duration) {
	raw, err := json.Marshal(value)
	if err != nil {
		return
	}
	f.values[key] = raw
	f.ttls[key] = ttl
}

func (f *fakeOTPStore) Delete(_ context.Context, key string) error {
	delete(f.values, key)
	delete(f.ttls, key)
	return nil
}

func (f *fakeOTPStore) SetNX(_ context.Context, key string, ttl time.Duration) bool {
	if _, ok := f.values[key]; ok {
		return false
	}
	f.values[key] = []byte("1")
	f.ttls[key] = ttl
	return true
}

func (f *fakeOTPStore) TTL(_ context.Context, key string) (time.Duration, bool) {
	ttl, ok := f.ttls[key]
	return ttl, ok
}

func TestOTPService_Issue_GeneratesSixDigitCode(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")

	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), code)
}

func TestOTPService_Issue_UnknownPurpose(t *testing.T) {
	svc := NewOTPService(newFakeOTPStore())

	_, err := svc.Issue(context.Background(), "magic_link", "user@example.com")

	assert.True(t, apperror.IsValidation(err))
}

func TestOTPService_Issue_ResendWindowBlocksReissue(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	_, err := svc.Issue(ctx, models.OTPPurposePasswordReset, "user@example.com")
	require.NoError(t, err)

	// Ограничитель действует независимо от состояния самого кода.
	_, err = svc.Issue(ctx, models.OTPPurposePasswordReset, "user@example.com")
	assert.True(t, apperror.IsConflict(err))
}

func TestOTPService_Issue_ResendWindowOutlivesBurnedCode(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	// Три неверные попытки сжигают код, запись удаляется.
	for i := 0; i < 3; i++ {
		err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", wrong)
		require.Error(t, err)
	}
	_, ok := store.values[cache.OTPKey(models.OTPPurposeEmailVerify, "user@example.com")]
	require.False(t, ok)

	// Ограничитель повторной отправки переживает сожжённый код.
	_, err = svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	assert.True(t, apperror.IsConflict(err))
}

func TestOTPService_Check_MissingCode(t *testing.T) {
	svc := NewOTPService(newFakeOTPStore())

	err := svc.Check(context.Background(), models.OTPPurposeEmailVerify, "user@example.com", "123456")

	assert.True(t, apperror.IsNotFound(err))
}

func TestOTPService_Check_WrongCodeKeepsRemainingTTL(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)

	key := cache.OTPKey(models.OTPPurposeEmailVerify, "user@example.com")

	// Эмулируем частично истёкшую запись.
	store.ttls[key] = 200 * time.Second

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}
	err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", wrong)
	assert.True(t, apperror.IsValidation(err))

	// Перезапись счётчика не продлевает жизнь записи.
	assert.Equal(t, 200*time.Second, store.ttls[key])

	var entry otpEntry
	require.True(t, store.Get(ctx, key, &entry))
	assert.Equal(t, 1, entry.Attempts)
	assert.False(t, entry.Verified)
}

func TestOTPService_Check_ThirdWrongAttemptDeletesEntry(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)

	wrong := "000000"
	if wrong == code {
		wrong = "000001"
	}

	err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", wrong)
	assert.True(t, apperror.IsValidation(err))
	err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", wrong)
	assert.True(t, apperror.IsValidation(err))

	// Третья неверная попытка сжигает код.
	err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", wrong)
	assert.True(t, apperror.IsConflict(err))

	// Четвёртая попытка сообщает об истечении, а не о неверном коде:
	// даже правильный код уже не принимается.
	err = svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", code)
	assert.True(t, apperror.IsNotFound(err))
}

func TestOTPService_Check_CorrectCodeMarksVerifiedAndExtendsTTL(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", code))

	key := cache.OTPKey(models.OTPPurposeEmailVerify, "user@example.com")
	var entry otpEntry
	require.True(t, store.Get(ctx, key, &entry))
	assert.True(t, entry.Verified)
	assert.Equal(t, otpVerifiedTTLEmailVerify, store.ttls[key])
}

func TestOTPService_Check_PasswordResetVerifiedWindow(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposePasswordReset, "user@example.com")
	require.NoError(t, err)

	require.NoError(t, svc.Check(ctx, models.OTPPurposePasswordReset, "user@example.com", code))

	key := cache.OTPKey(models.OTPPurposePasswordReset, "user@example.com")
	assert.Equal(t, otpVerifiedTTLPasswordReset, store.ttls[key])
}

func TestOTPService_Consume_RequiresVerified(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	_, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)

	// Код выпущен, но не подтверждён.
	err = svc.Consume(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	assert.True(t, apperror.IsUnauthorized(err))
}

func TestOTPService_Consume_DeletesEntry(t *testing.T) {
	store := newFakeOTPStore()
	svc := NewOTPService(store)
	ctx := context.Background()

	code, err := svc.Issue(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	require.NoError(t, err)
	require.NoError(t, svc.Check(ctx, models.OTPPurposeEmailVerify, "user@example.com", code))

	require.NoError(t, svc.Consume(ctx, models.OTPPurposeEmailVerify, "user@example.com"))

	// Повторное потребление невозможно.
	err = svc.Consume(ctx, models.OTPPurposeEmailVerify, "user@example.com")
	assert.True(t, apperror.IsUnauthorized(err))
}
