package activity

import (
	"fmt"
	"regexp"

	"github.com/gagliardetto/solana-go"
)

// ValidationError marks malformed caller input. It fails the request
// immediately, before any cache or network activity, and is never
// retried.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Retryable reports false: bad input does not improve on retry.
func (e *ValidationError) Retryable() bool { return false }

var base58Pattern = regexp.MustCompile(`^[1-9A-HJ-NP-Za-km-z]{32,44}$`)

// ValidateAddress checks that s is a plausible wallet address: base-58
// alphabet, 32 to 44 characters, and decodable to a public key. It
// returns the address unchanged on success so callers can thread the
// validated value through the pipeline.
func ValidateAddress(s string) (string, error) {
	if s == "" {
		return "", &ValidationError{Field: "address", Reason: "empty"}
	}
	if !base58Pattern.MatchString(s) {
		return "", &ValidationError{Field: "address", Reason: "must be 32-44 base58 characters"}
	}
	if _, err := solana.PublicKeyFromBase58(s); err != nil {
		return "", &ValidationError{Field: "address", Reason: "not a valid public key"}
	}
	return s, nil
}

// ValidateLookbackDays checks the trading-volume window bounds.
func ValidateLookbackDays(days int) error {
	if days < MinLookbackDays || days > MaxLookbackDays {
		return &ValidationError{
			Field:  "days",
			Reason: fmt.Sprintf("must be between %d and %d", MinLookbackDays, MaxLookbackDays),
		}
	}
	return nil
}
