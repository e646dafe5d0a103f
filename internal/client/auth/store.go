package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"

	"github.com/fitzone/fitzone-cli/internal/client/storage"
	"github.com/fitzone/fitzone-cli/internal/crypto"
)

// Store is the encryption layer between the auth service and raw credential
// storage. Tokens are encrypted at rest under a key derived from a random
// per-device secret; the cached identity is stored as plain JSON.
type Store struct {
	storage storage.CredentialStorage
	key     []byte
}

// NewStore создает Store поверх хранилища
// При первом запуске генерирует device secret, соль и device ID
func NewStore(ctx context.Context, st storage.CredentialStorage) (*Store, error) {
	s := &Store{storage: st}

	secret, salt, err := s.loadOrCreateDeviceSecret(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize device secret: %w", err)
	}

	key, err := crypto.DeriveDeviceKey(secret, salt)
	if err != nil {
		return nil, fmt.Errorf("failed to derive device key: %w", err)
	}
	s.key = key

	if err := s.ensureDeviceID(ctx); err != nil {
		return nil, err
	}

	return s, nil
}

// SaveToken шифрует и сохраняет access token вместе с моментом истечения
func (s *Store) SaveToken(ctx context.Context, token string, expiresAt int64) error {
	data, err := json.Marshal(&storage.StoredToken{Token: token, ExpiresAt: expiresAt})
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}
	return s.setEncrypted(ctx, storage.KeyAccessToken, data)
}

// Token возвращает расшифрованный access token
// Возвращает storage.ErrNotFound если токена нет
func (s *Store) Token(ctx context.Context) (*storage.StoredToken, error) {
	data, err := s.getEncrypted(ctx, storage.KeyAccessToken)
	if err != nil {
		return nil, err
	}

	var token storage.StoredToken
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// SaveRefreshToken шифрует и сохраняет refresh token
func (s *Store) SaveRefreshToken(ctx context.Context, token string) error {
	return s.setEncrypted(ctx, storage.KeyRefreshToken, []byte(token))
}

// RefreshToken возвращает расшифрованный refresh token
func (s *Store) RefreshToken(ctx context.Context) (string, error) {
	data, err := s.getEncrypted(ctx, storage.KeyRefreshToken)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// SaveIdentity кэширует данные пользователя
// Неполная запись (без id или email) не сохраняется - инвариант UserIdentity
func (s *Store) SaveIdentity(ctx context.Context, user *pkgapi.UserInfo) error {
	if !user.Valid() {
		return fmt.Errorf("refusing to cache incomplete user identity")
	}
	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("failed to marshal user info: %w", err)
	}
	return s.storage.Set(ctx, storage.KeyUserInfo, data)
}

// Identity возвращает кэшированные данные пользователя
// Частично заполненная запись трактуется как отсутствующая
func (s *Store) Identity(ctx context.Context) (*pkgapi.UserInfo, error) {
	data, err := s.storage.Get(ctx, storage.KeyUserInfo)
	if err != nil {
		return nil, err
	}

	var user pkgapi.UserInfo
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, storage.ErrNotFound
	}
	if !user.Valid() {
		return nil, storage.ErrNotFound
	}
	return &user, nil
}

// HasToken reports whether an access token is stored; any storage failure
// counts as absence, never as an error.
func (s *Store) HasToken(ctx context.Context) bool {
	_, err := s.storage.Get(ctx, storage.KeyAccessToken)
	return err == nil
}

// DeviceID возвращает стабильный идентификатор этого клиента
func (s *Store) DeviceID(ctx context.Context) string {
	data, err := s.storage.Get(ctx, storage.KeyDeviceID)
	if err != nil {
		return ""
	}
	return string(data)
}

// Clear удаляет все три ключа сессии: access token, refresh token, user info
// Device-метаданные переживают logout
func (s *Store) Clear(ctx context.Context) error {
	var errs []error
	for _, key := range []string{storage.KeyAccessToken, storage.KeyRefreshToken, storage.KeyUserInfo} {
		if err := s.storage.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("failed to delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

func (s *Store) setEncrypted(ctx context.Context, key string, plaintext []byte) error {
	encrypted, err := crypto.Encrypt(plaintext, s.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", key, err)
	}
	encoded := base64.StdEncoding.EncodeToString(encrypted)
	return s.storage.Set(ctx, key, []byte(encoded))
}

func (s *Store) getEncrypted(ctx context.Context, key string) ([]byte, error) {
	stored, err := s.storage.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	encrypted, err := base64.StdEncoding.DecodeString(string(stored))
	if err != nil {
		return nil, fmt.Errorf("failed to base64 decode %s: %w", key, err)
	}

	plaintext, err := crypto.Decrypt(encrypted, s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt %s: %w", key, err)
	}
	return plaintext, nil
}

func (s *Store) loadOrCreateDeviceSecret(ctx context.Context) (string, []byte, error) {
	secretRaw, err := s.storage.Get(ctx, storage.KeyDeviceSecret)
	saltRaw, saltErr := s.storage.Get(ctx, storage.KeyKeySalt)

	if err == nil && saltErr == nil {
		salt, decErr := base64.StdEncoding.DecodeString(string(saltRaw))
		if decErr == nil {
			return string(secretRaw), salt, nil
		}
		// Поврежденная соль: пересоздаем секрет, старые токены уже не прочитать
	}

	secret, err := crypto.GenerateDeviceSecret()
	if err != nil {
		return "", nil, err
	}
	salt, err := crypto.GenerateSalt()
	if err != nil {
		return "", nil, err
	}

	if err := s.storage.Set(ctx, storage.KeyDeviceSecret, []byte(secret)); err != nil {
		return "", nil, err
	}
	saltEncoded := base64.StdEncoding.EncodeToString(salt)
	if err := s.storage.Set(ctx, storage.KeyKeySalt, []byte(saltEncoded)); err != nil {
		return "", nil, err
	}

	return secret, salt, nil
}

func (s *Store) ensureDeviceID(ctx context.Context) error {
	if _, err := s.storage.Get(ctx, storage.KeyDeviceID); err == nil {
		return nil
	}
	id := uuid.New().String()
	if err := s.storage.Set(ctx, storage.KeyDeviceID, []byte(id)); err != nil {
		return fmt.Errorf("failed to save device id: %w", err)
	}
	return nil
}
