// Package codegen produces short random codes over the base62 alphabet and
// allocates codes that are not yet taken according to a caller-supplied check.
package codegen

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const (
	// Alphabet holds the 62 characters a code is built from.
	Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	// DefaultLength gives 62^6 possible codes.
	DefaultLength = 6
	// DefaultMaxRetries bounds the attempts made by GenerateUnique.
	DefaultMaxRetries = 5
)

// ErrMaxRetriesExceeded is matched by RetriesExhaustedError.
var ErrMaxRetriesExceeded = errors.New("maximum retries exceeded for generating code")

// RetriesExhaustedError is returned when no free code was found within the retry bound.
type RetriesExhaustedError struct {
	Attempts int
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("unable to generate unique code after %d attempts", e.Attempts)
}

func (e *RetriesExhaustedError) Is(target error) bool {
	return target == ErrMaxRetriesExceeded
}

// ExistsFunc reports whether code is already taken.
type ExistsFunc func(code string) (bool, error)

// Generate returns a code of the given length. Each character is drawn
// uniformly from Alphabet using crypto/rand.
func Generate(length int) (string, error) {
	const op = "codegen.Generate"

	code, err := gonanoid.Generate(Alphabet, length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate code: %w", op, err)
	}

	return code, nil
}

// GenerateUnique calls Generate until exists reports a code as free, making at
// most maxRetries attempts. An error from exists stops the loop immediately.
func GenerateUnique(exists ExistsFunc, length, maxRetries int) (string, error) {
	const op = "codegen.GenerateUnique"

	for attempt := 0; attempt < maxRetries; attempt++ {
		code, err := Generate(length)
		if err != nil {
			return "", fmt.Errorf("%s: %w", op, err)
		}

		taken, err := exists(code)
		if err != nil {
			return "", fmt.Errorf("%s: failed to check code existence: %w", op, err)
		}

		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%s: %w", op, &RetriesExhaustedError{Attempts: maxRetries})
}
