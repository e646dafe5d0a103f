package storage

import "context"

// Logical keys inside the credential store. Logout clears exactly the first
// three; device metadata survives so the at-rest encryption key is stable
// across sessions.
const (
	KeyAccessToken  = "access_token"
	KeyRefreshToken = "refresh_token"
	KeyUserInfo     = "user_info"

	KeyDeviceID     = "device_id"
	KeyDeviceSecret = "device_secret"
	KeyKeySalt      = "key_salt"
)

//go:generate moq -out storage_mock.go . CredentialStorage

// CredentialStorage defines the persistent key/value store for auth material.
// Absence of a value is reported as ErrNotFound; implementations without a
// persistent medium (see Memory) simply never fail.
type CredentialStorage interface {
	// Get returns the stored value for key, or ErrNotFound
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key, overwriting any previous value
	Set(ctx context.Context, key string, value []byte) error

	// Delete removes key; deleting an absent key is not an error
	Delete(ctx context.Context, key string) error

	// Close releases the underlying medium
	Close() error
}

// StoredToken представляет access token вместе с моментом истечения
type StoredToken struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // unix seconds
}
