package migration

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	dErrors "smp/pkg/domain-errors"
)

func TestValidateKey(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		valid bool
	}{
		{name: "minimal", key: "AAbb11@@", valid: true},
		{name: "maximal", key: "AAbb11@@" + strings.Repeat("x", 16), valid: true},
		{name: "all specials", key: "Ab1@#$%()[]{}*^-!~|+=aB2", valid: true},
		{name: "too short", key: "Ab1@Ab1", valid: false},
		{name: "too long", key: "AAbb11@@" + strings.Repeat("x", 17), valid: false},
		{name: "one upper", key: "Abbb11@@", valid: false},
		{name: "one digit", key: "AAbb1x@@", valid: false},
		{name: "one special", key: "AAbb11@x", valid: false},
		{name: "whitespace", key: "AAbb11@@ x", valid: false},
		{name: "foreign special", key: "AAbb11@@_", valid: false},
		{name: "non ascii", key: "AAbb11@@é", valid: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateKey(tt.key)
			if tt.valid {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		})
	}
}

func TestGenerateKeyAlwaysValid(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		key, err := GenerateKey()
		if err != nil {
			t.Fatal(err)
		}
		if err := ValidateKey(key); err != nil {
			t.Fatalf("generated key %q is invalid: %v", key, err)
		}
	})
}

func TestValidateKeyAcceptsComposedKeys(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		draw := func(alphabet, label string) string {
			return rapid.StringOfN(rapid.SampledFrom([]rune(alphabet)), minPerClass, 4, -1).Draw(t, label)
		}
		key := draw(keyUpper, "upper") + draw(keyLower, "lower") + draw(keyDigits, "digits") + draw(keySpecial, "special")
		if err := ValidateKey(key); err != nil {
			t.Fatalf("key %q rejected: %v", key, err)
		}
	})
}
