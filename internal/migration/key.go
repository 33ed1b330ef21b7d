package migration

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"

	dErrors "smp/pkg/domain-errors"
)

const (
	KeyMinLength = 8
	KeyMaxLength = 24

	// minPerClass is the minimum number of characters of each class.
	minPerClass = 2

	generatedKeyLength = 24

	keyUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	keyLower   = "abcdefghijklmnopqrstuvwxyz"
	keyDigits  = "0123456789"
	keySpecial = "@#$%()[]{}*^-!~|+="
)

// ValidateKey checks a migration key against the SML migration code rules:
// 8 to 24 characters, at least two each of upper case, lower case, digit and
// special characters, and nothing else.
func ValidateKey(key string) error {
	if n := len(key); n < KeyMinLength || n > KeyMaxLength {
		return dErrors.Newf(dErrors.CodeValidation, "migration key must have %d to %d characters", KeyMinLength, KeyMaxLength)
	}
	var upper, lower, digit, special int
	for _, r := range key {
		switch {
		case strings.ContainsRune(keyUpper, r):
			upper++
		case strings.ContainsRune(keyLower, r):
			lower++
		case strings.ContainsRune(keyDigits, r):
			digit++
		case strings.ContainsRune(keySpecial, r):
			special++
		case unicode.IsSpace(r):
			return dErrors.New(dErrors.CodeValidation, "migration key must not contain whitespace")
		default:
			return dErrors.Newf(dErrors.CodeValidation, "migration key contains invalid character %q", r)
		}
	}
	if upper < minPerClass || lower < minPerClass || digit < minPerClass || special < minPerClass {
		return dErrors.Newf(dErrors.CodeValidation,
			"migration key needs at least %d upper case, lower case, digit and special characters", minPerClass)
	}
	return nil
}

// GenerateKey returns a random key that satisfies ValidateKey.
func GenerateKey() (string, error) {
	classes := []string{keyUpper, keyLower, keyDigits, keySpecial}
	all := keyUpper + keyLower + keyDigits + keySpecial

	key := make([]byte, 0, generatedKeyLength)
	for _, class := range classes {
		for range minPerClass {
			c, err := pick(class)
			if err != nil {
				return "", err
			}
			key = append(key, c)
		}
	}
	for len(key) < generatedKeyLength {
		c, err := pick(all)
		if err != nil {
			return "", err
		}
		key = append(key, c)
	}
	// Fisher-Yates so the guaranteed characters are not always first.
	for i := len(key) - 1; i > 0; i-- {
		j, err := randInt(i + 1)
		if err != nil {
			return "", err
		}
		key[i], key[j] = key[j], key[i]
	}
	return string(key), nil
}

func pick(alphabet string) (byte, error) {
	i, err := randInt(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func randInt(n int) (int, error) {
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read random bytes")
	}
	return int(v.Int64()), nil
}
