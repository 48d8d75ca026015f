package barcode

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerate_ChecksumRoundTrip(t *testing.T) {
	g := NewGenerator(rand.NewSource(1))

	for i := 0; i < 1000; i++ {
		code := g.Generate()
		require.Len(t, code, Length)
		assert.NoError(t, Validate(code))
		// recomputing over the first 11 digits must yield the 12th
		assert.Equal(t, code[Length-1], checkDigit([]byte(code[:Length-1])))
	}
}

func TestGenerate_BaseRange(t *testing.T) {
	g := NewGenerator(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		code := g.Generate()
		// 11-digit base means the first digit is never zero
		assert.NotEqual(t, byte('0'), code[0])
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a := NewGenerator(rand.NewSource(7))
	b := NewGenerator(rand.NewSource(7))
	for i := 0; i < 10; i++ {
		assert.Equal(t, a.Generate(), b.Generate())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantErr bool
	}{
		{"too short", "12345678901", true},
		{"too long", "1234567890123", true},
		{"non-numeric", "12345678901a", true},
		{"bad check digit", "123456789011", true},
		{"good check digit", "123456789012", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.code)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidBarcode)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
