package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/storage"
)

func newTestStore(t *testing.T) (*Store, *storage.Memory) {
	t.Helper()
	mem := storage.NewMemory()
	store, err := NewStore(context.Background(), mem)
	require.NoError(t, err)
	return store, mem
}

func TestNewStore_InitializesDeviceMetadata(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	// Device secret, соль и device ID создаются при первом запуске
	_, err := mem.Get(ctx, storage.KeyDeviceSecret)
	assert.NoError(t, err)
	_, err = mem.Get(ctx, storage.KeyKeySalt)
	assert.NoError(t, err)
	assert.NotEmpty(t, store.DeviceID(ctx))
}

// Device ID и ключ шифрования стабильны между запусками
func TestNewStore_StableAcrossRestarts(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	require.NoError(t, store.SaveToken(ctx, "access-token", 1700000000))
	deviceID := store.DeviceID(ctx)

	// "Перезапуск": новый Store поверх того же хранилища
	reopened, err := NewStore(ctx, mem)
	require.NoError(t, err)

	assert.Equal(t, deviceID, reopened.DeviceID(ctx))

	token, err := reopened.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-token", token.Token)
	assert.Equal(t, int64(1700000000), token.ExpiresAt)
}

func TestStore_TokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	require.NoError(t, store.SaveToken(ctx, "access-token", 1700000000))

	token, err := store.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "access-token", token.Token)
	assert.Equal(t, int64(1700000000), token.ExpiresAt)
}

// Токен не должен лежать в хранилище открытым текстом
func TestStore_TokenEncryptedAtRest(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	require.NoError(t, store.SaveToken(ctx, "super-secret-access-token", 1700000000))

	raw, err := mem.Get(ctx, storage.KeyAccessToken)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "super-secret-access-token")
}

func TestStore_Token_NotFound(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	_, err := store.Token(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_RefreshTokenRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	require.NoError(t, store.SaveRefreshToken(ctx, "refresh-token-value"))

	got, err := store.RefreshToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "refresh-token-value", got)

	raw, err := mem.Get(ctx, storage.KeyRefreshToken)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "refresh-token-value")
}

func TestStore_IdentityRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	user := &pkgapi.UserInfo{ID: 42, Email: "member@fitzone.com", Name: "Ana Gomez"}
	require.NoError(t, store.SaveIdentity(ctx, user))

	got, err := store.Identity(ctx)
	require.NoError(t, err)
	assert.Equal(t, user, got)
}

// Неполная identity не сохраняется и не отдается
func TestStore_Identity_IncompleteRejected(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	assert.Error(t, store.SaveIdentity(ctx, &pkgapi.UserInfo{Email: "no-id@fitzone.com"}))
	assert.Error(t, store.SaveIdentity(ctx, &pkgapi.UserInfo{ID: 42}))

	// Запись испорчена в обход Store: чтение трактует ее как отсутствие
	require.NoError(t, mem.Set(ctx, storage.KeyUserInfo, []byte(`{"email":"only@fitzone.com"}`)))
	_, err := store.Identity(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	require.NoError(t, mem.Set(ctx, storage.KeyUserInfo, []byte("not json")))
	_, err = store.Identity(ctx)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_HasToken(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore(t)

	assert.False(t, store.HasToken(ctx))

	require.NoError(t, store.SaveToken(ctx, "access-token", 1700000000))
	assert.True(t, store.HasToken(ctx))
}

// Clear удаляет сессию, но device-метаданные живут дальше
func TestStore_Clear(t *testing.T) {
	ctx := context.Background()
	store, mem := newTestStore(t)

	require.NoError(t, store.SaveToken(ctx, "access", 1700000000))
	require.NoError(t, store.SaveRefreshToken(ctx, "refresh"))
	require.NoError(t, store.SaveIdentity(ctx, &pkgapi.UserInfo{ID: 1, Email: "a@b.com"}))

	require.NoError(t, store.Clear(ctx))

	_, err := mem.Get(ctx, storage.KeyAccessToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = mem.Get(ctx, storage.KeyRefreshToken)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = mem.Get(ctx, storage.KeyUserInfo)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = mem.Get(ctx, storage.KeyDeviceSecret)
	assert.NoError(t, err)
	assert.NotEmpty(t, store.DeviceID(ctx))
}
