package otp

import (
	"errors"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// ErrInvalidSecret is returned when a secret is empty or is not valid base32.
var ErrInvalidSecret = errors.New("otp: invalid secret")

const (
	defaultIssuer     = "otpreset"
	defaultPeriod     = 600
	minSecretSize     = 20
	defaultSecretSize = 20
)

// Config describes the TOTP parameters shared by issuer and verifier.
type Config struct {
	Issuer     string
	Digits     otp.Digits
	Period     uint
	Skew       uint
	SecretSize uint
	Algorithm  otp.Algorithm
}

// DefaultConfig returns 6 digits over a 600 second window, SHA1, no drift allowance.
func DefaultConfig() Config {
	return Config{
		Issuer:     defaultIssuer,
		Digits:     otp.DigitsSix,
		Period:     defaultPeriod,
		Skew:       0,
		SecretSize: defaultSecretSize,
		Algorithm:  otp.AlgorithmSHA1,
	}
}

// ParseAlgorithm maps a configuration string to an HMAC algorithm. Unknown values fall back to SHA1.
func ParseAlgorithm(s string) otp.Algorithm {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "SHA256":
		return otp.AlgorithmSHA256
	case "SHA512":
		return otp.AlgorithmSHA512
	default:
		return otp.AlgorithmSHA1
	}
}

func (c Config) normalize() Config {
	if c.Digits != otp.DigitsSix && c.Digits != otp.DigitsEight {
		c.Digits = otp.DigitsSix
	}
	if c.Period == 0 {
		c.Period = defaultPeriod
	}
	if c.SecretSize < minSecretSize {
		c.SecretSize = minSecretSize
	}
	if c.Issuer == "" {
		c.Issuer = defaultIssuer
	}
	return c
}

func (c Config) validateOpts() totp.ValidateOpts {
	return totp.ValidateOpts{
		Period:    c.Period,
		Skew:      c.Skew,
		Digits:    c.Digits,
		Algorithm: c.Algorithm,
	}
}

// GenerateSecret returns a fresh crypto-random secret, base32 encoded without padding.
func GenerateSecret(cfg Config, accountName string) (string, error) {
	cfg = cfg.normalize()
	if accountName == "" {
		accountName = cfg.Issuer
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      cfg.Issuer,
		AccountName: accountName,
		Period:      cfg.Period,
		SecretSize:  cfg.SecretSize,
		Digits:      cfg.Digits,
		Algorithm:   cfg.Algorithm,
	})
	if err != nil {
		return "", err
	}

	return key.Secret(), nil
}

// Derive returns the code for the window containing at.
func Derive(cfg Config, secret string, at time.Time) (string, error) {
	if strings.TrimSpace(secret) == "" {
		return "", ErrInvalidSecret
	}

	cfg = cfg.normalize()
	code, err := totp.GenerateCodeCustom(secret, at, cfg.validateOpts())
	if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
		return "", ErrInvalidSecret
	}
	if err != nil {
		return "", err
	}

	return code, nil
}

// Matches reports whether code is the code of the window containing at,
// widened by cfg.Skew windows on either side.
func Matches(cfg Config, secret, code string, at time.Time) (bool, error) {
	if strings.TrimSpace(secret) == "" {
		return false, ErrInvalidSecret
	}

	cfg = cfg.normalize()
	if len(code) != cfg.Digits.Length() {
		return false, nil
	}

	ok, err := totp.ValidateCustom(code, secret, at, cfg.validateOpts())
	if errors.Is(err, otp.ErrValidateSecretInvalidBase32) {
		return false, ErrInvalidSecret
	}
	if err != nil {
		return false, err
	}

	return ok, nil
}

// Window returns the counter of the window containing at.
func Window(cfg Config, at time.Time) uint64 {
	cfg = cfg.normalize()
	return uint64(at.Unix()) / uint64(cfg.Period)
}

// ValidFor returns the window length.
func ValidFor(cfg Config) time.Duration {
	cfg = cfg.normalize()
	return time.Duration(cfg.Period) * time.Second
}
