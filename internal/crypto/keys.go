package crypto

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/crypto/argon2"
)

// Параметры Argon2id для деривации ключа шифрования токенов
const (
	// Argon2Time - количество итераций (time cost)
	Argon2Time = 1
	// Argon2Memory - объем памяти в KB (64MB = 64*1024 KB)
	Argon2Memory = 64 * 1024
	// Argon2Threads - количество параллельных потоков
	Argon2Threads = 4
	// SaltSize - размер соли в байтах
	SaltSize = 32
	// SecretSize - размер случайного device secret в байтах
	SecretSize = 32
)

// GenerateSalt генерирует криптографически случайную соль
func GenerateSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}
	return salt, nil
}

// GenerateDeviceSecret генерирует случайный секрет устройства в Base64.
// Секрет создается один раз при первом запуске и живет рядом с хранилищем:
// он защищает токены at rest от случайного чтения файла БД, не претендуя
// на защиту от атакующего с доступом к тому же каталогу.
func GenerateDeviceSecret() (string, error) {
	secret := make([]byte, SecretSize)
	if _, err := rand.Read(secret); err != nil {
		return "", fmt.Errorf("failed to generate device secret: %w", err)
	}
	return base64.StdEncoding.EncodeToString(secret), nil
}

// DeriveDeviceKey деривирует 32-байтовый ключ шифрования из device secret
// с использованием Argon2id
func DeriveDeviceKey(deviceSecret string, salt []byte) ([]byte, error) {
	if deviceSecret == "" {
		return nil, fmt.Errorf("device secret cannot be empty")
	}
	if len(salt) != SaltSize {
		return nil, fmt.Errorf("salt must be %d bytes, got %d", SaltSize, len(salt))
	}

	key := argon2.IDKey([]byte(deviceSecret), salt, Argon2Time, Argon2Memory, Argon2Threads, KeySize)
	return key, nil
}
