package config

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// Bounds accepted for BCRYPT_COST.
const (
	MinBcryptCost = 10
	MaxBcryptCost = 14
)

// bcryptMaxBytes is the longest input bcrypt accepts.
const bcryptMaxBytes = 72

// minPasswordBytes matches the min=8 rule on incoming passwords.
const minPasswordBytes = 8

// ErrPasswordTooLong is returned when a password plus the pepper exceeds what bcrypt can hash.
var ErrPasswordTooLong = errors.New("password too long")

// PasswordConfig holds configuration for password hashing and verification.
type PasswordConfig struct {
	BcryptCost int    `env:"BCRYPT_COST" envDefault:"12"`
	Pepper     string `env:"PASSWORD_PEPPER"` // optional global secret appended before hashing
}

// NewPasswordConfig creates a new password configuration from environment variables.
// It reads BCRYPT_COST (default: 12) and optionally PASSWORD_PEPPER.
func NewPasswordConfig() (*PasswordConfig, error) {
	var cfg PasswordConfig
	if err := parseEnv(&cfg); err != nil {
		return nil, fmt.Errorf("invalid BCRYPT_COST: %w", err)
	}

	if err := cfg.normalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *PasswordConfig) normalize() error {
	if c.BcryptCost < MinBcryptCost || c.BcryptCost > MaxBcryptCost {
		return fmt.Errorf("bcrypt cost out of range: %d (must be %d-%d)", c.BcryptCost, MinBcryptCost, MaxBcryptCost)
	}
	if c.MaxPasswordBytes() < minPasswordBytes {
		return fmt.Errorf("password pepper too long: %d bytes (max %d)", len(c.Pepper), bcryptMaxBytes-minPasswordBytes)
	}
	return nil
}

func (c *PasswordConfig) peppered(pw string) []byte {
	return []byte(pw + c.Pepper)
}

// MaxPasswordBytes is the longest password, in bytes, that HashPassword accepts.
func (c *PasswordConfig) MaxPasswordBytes() int {
	return bcryptMaxBytes - len(c.Pepper)
}

// HashPassword hashes a password using bcrypt.
// Passwords longer than MaxPasswordBytes fail with ErrPasswordTooLong.
func (c *PasswordConfig) HashPassword(pw string) (string, error) {
	if len(pw) > c.MaxPasswordBytes() {
		return "", ErrPasswordTooLong
	}
	hash, err := bcrypt.GenerateFromPassword(c.peppered(pw), c.BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// VerifyPassword reports whether pw matches storedHash. An empty hash never matches.
func (c *PasswordConfig) VerifyPassword(pw, storedHash string) bool {
	if storedHash == "" {
		return false
	}
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), c.peppered(pw))
	return err == nil
}

// NeedsRehash reports whether storedHash was produced with a cost other than the configured one.
func (c *PasswordConfig) NeedsRehash(storedHash string) bool {
	cost, err := bcrypt.Cost([]byte(storedHash))
	if err != nil {
		return true
	}
	return cost != c.BcryptCost
}
