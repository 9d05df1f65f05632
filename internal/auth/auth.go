// Package auth manages the local unlock PIN and the biometric unlock flag.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"

	"walleet/internal/log"
	"walleet/internal/storage"
)

const (
	PINLength         = 4
	DefaultIterations = 100_000
	saltBytes         = 16
	keyBytes          = 32
)

var (
	ErrInvalidPIN  = errors.New("PIN must be exactly 4 digits")
	ErrPINMismatch = errors.New("PINs do not match")
	ErrNotSetUp    = errors.New("PIN has not been set up")
)

type Options struct {
	Iterations int
	Logger     *log.Logger
}

// Status is what the unlock screen needs to know.
type Status struct {
	SetupComplete     bool `json:"isSetupComplete"`
	BiometricsEnabled bool `json:"biometricsEnabled"`
}

type Service struct {
	kv         storage.KV
	iterations int
	logger     *log.Logger
}

func New(kv storage.KV, opts Options) *Service {
	if opts.Iterations <= 0 {
		opts.Iterations = DefaultIterations
	}
	return &Service{
		kv:         kv,
		iterations: opts.Iterations,
		logger:     log.OrDefault(opts.Logger, log.ComponentAuth),
	}
}

func ValidatePIN(pin string) error {
	if len(pin) != PINLength {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// Setup stores a new PIN. The setup flag is written last so an interrupted
// setup is repeated on next start.
func (s *Service) Setup(ctx context.Context, pin, confirm string) error {
	if err := ValidatePIN(pin); err != nil {
		return err
	}
	if pin != confirm {
		return ErrPINMismatch
	}

	salt := make([]byte, saltBytes)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate salt: %w", err)
	}
	hash := s.derive(pin, salt)

	if err := s.kv.Set(ctx, storage.KeyPinSalt, hex.EncodeToString(salt)); err != nil {
		return fmt.Errorf("store salt: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeyPinHash, hex.EncodeToString(hash)); err != nil {
		return fmt.Errorf("store hash: %w", err)
	}
	if err := s.kv.Set(ctx, storage.KeySetupComplete, true); err != nil {
		return fmt.Errorf("store setup flag: %w", err)
	}

	s.logger.InfoContext(ctx, "PIN configured")
	return nil
}

// Verify reports whether pin matches the stored PIN.
func (s *Service) Verify(ctx context.Context, pin string) (bool, error) {
	var hashHex, saltHex string
	foundHash, err := s.kv.Get(ctx, storage.KeyPinHash, &hashHex)
	if err != nil {
		return false, fmt.Errorf("read hash: %w", err)
	}
	foundSalt, err := s.kv.Get(ctx, storage.KeyPinSalt, &saltHex)
	if err != nil {
		return false, fmt.Errorf("read salt: %w", err)
	}
	if !foundHash || !foundSalt || hashHex == "" {
		return false, ErrNotSetUp
	}

	want, err := hex.DecodeString(hashHex)
	if err != nil {
		return false, fmt.Errorf("decode hash: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return false, fmt.Errorf("decode salt: %w", err)
	}

	if ValidatePIN(pin) != nil {
		return false, nil
	}
	ok := subtle.ConstantTimeCompare(s.derive(pin, salt), want) == 1
	if !ok {
		s.logger.WarnContext(ctx, "PIN verification failed")
	}
	return ok, nil
}

func (s *Service) SetBiometrics(ctx context.Context, enabled bool) error {
	if err := s.kv.Set(ctx, storage.KeyBiometricsEnabled, enabled); err != nil {
		return fmt.Errorf("store biometrics flag: %w", err)
	}
	s.logger.InfoContext(ctx, "Biometric unlock updated", "enabled", enabled)
	return nil
}

func (s *Service) Status(ctx context.Context) (Status, error) {
	setup, err := storage.GetBool(ctx, s.kv, storage.KeySetupComplete)
	if err != nil {
		return Status{}, err
	}
	bio, err := storage.GetBool(ctx, s.kv, storage.KeyBiometricsEnabled)
	if err != nil {
		return Status{}, err
	}
	return Status{SetupComplete: setup, BiometricsEnabled: bio}, nil
}

func (s *Service) derive(pin string, salt []byte) []byte {
	return pbkdf2.Key([]byte(pin), salt, s.iterations, keyBytes, sha256.New)
}
