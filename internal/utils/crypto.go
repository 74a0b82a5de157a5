package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRandomBytes generates n random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GenerateSecret returns n random bytes hex encoded.
func GenerateSecret(n int) (string, error) {
	b, err := GenerateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func StringPtr(s string) *string {
	return &s
}
