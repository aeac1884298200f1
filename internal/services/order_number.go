package services

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

const digitAlphabet = "0123456789"

// NumberGenerator returns a candidate order number. Uniqueness is enforced by
// the store; callers retry on collision.
type NumberGenerator func(now time.Time) (string, error)

// NewNumberGenerator builds "<prefix><YYYYMMDD>-<digits random digits>".
func NewNumberGenerator(prefix string, digits int) NumberGenerator {
	if digits <= 0 {
		digits = 6
	}
	return func(now time.Time) (string, error) {
		suffix, err := gonanoid.Generate(digitAlphabet, digits)
		if err != nil {
			return "", err
		}
		return prefix + now.UTC().Format("20060102") + "-" + suffix, nil
	}
}
