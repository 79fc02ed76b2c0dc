package session

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/crypto/nacl/secretbox"
)

const nonceSize = 24

var errSealedTooShort = errors.New("session: зашифрованный токен слишком короткий")

// Sealer шифрует токен бэкенда перед записью в БД (secretbox, ключ через HKDF).
type Sealer struct {
	key [32]byte
}

// NewSealer выводит ключ шифрования из SESSION_ENCRYPTION_KEY.
func NewSealer(secret string) (*Sealer, error) {
	if secret == "" {
		return nil, errors.New("session: пустой ключ шифрования")
	}
	s := &Sealer{}
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("fazpramim-portal/session-token"))
	if _, err := io.ReadFull(r, s.key[:]); err != nil {
		return nil, fmt.Errorf("session: не удалось вывести ключ: %w", err)
	}
	return s, nil
}

// Seal возвращает nonce || secretbox(plaintext).
func (s *Sealer) Seal(plaintext string) ([]byte, error) {
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, fmt.Errorf("session: не удалось сгенерировать nonce: %w", err)
	}
	return secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &s.key), nil
}

// Open расшифровывает значение, полученное из Seal.
func (s *Sealer) Open(sealed []byte) (string, error) {
	if len(sealed) < nonceSize+secretbox.Overhead {
		return "", errSealedTooShort
	}
	var nonce [nonceSize]byte
	copy(nonce[:], sealed[:nonceSize])
	plain, ok := secretbox.Open(nil, sealed[nonceSize:], &nonce, &s.key)
	if !ok {
		return "", errors.New("session: не удалось расшифровать токен")
	}
	return string(plain), nil
}
