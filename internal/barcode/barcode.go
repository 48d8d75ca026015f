// Package barcode issues UPC-style 12-digit card identifiers: an
// 11-digit random base plus a weighted-checksum digit so transcription
// errors are detectable. Global uniqueness is not guaranteed here; the
// ledger's unique constraint is the backstop and callers regenerate on
// collision.
package barcode

import (
	"errors"
	"math/rand"
)

const (
	baseMin = 10_000_000_000 // smallest 11-digit base
	baseMax = 99_999_999_999
	Length  = 12
)

var ErrInvalidBarcode = errors.New("invalid barcode")

// Generator draws barcodes from a caller-supplied random source so
// tests can pin the sequence.
type Generator struct {
	rnd *rand.Rand
}

func NewGenerator(src rand.Source) *Generator {
	return &Generator{rnd: rand.New(src)}
}

// Generate returns a fresh 12-digit barcode.
func (g *Generator) Generate() string {
	base := baseMin + g.rnd.Int63n(baseMax-baseMin+1)
	digits := make([]byte, 0, Length)
	for div := int64(10_000_000_000); div >= 1; div /= 10 {
		digits = append(digits, byte('0'+(base/div)%10))
	}
	return string(append(digits, checkDigit(digits)))
}

// checkDigit computes the UPC check digit over the 11 base digits:
// weight 3 on even positions (0-indexed), 1 on odd.
func checkDigit(base []byte) byte {
	sum := 0
	for i, d := range base {
		w := 1
		if i%2 == 0 {
			w = 3
		}
		sum += w * int(d-'0')
	}
	return byte('0' + (10-sum%10)%10)
}

// Validate reports whether s is a well-formed 12-digit barcode whose
// final digit matches the checksum of the first 11.
func Validate(s string) error {
	if len(s) != Length {
		return ErrInvalidBarcode
	}
	for i := 0; i < Length; i++ {
		if s[i] < '0' || s[i] > '9' {
			return ErrInvalidBarcode
		}
	}
	if checkDigit([]byte(s[:Length-1])) != s[Length-1] {
		return ErrInvalidBarcode
	}
	return nil
}
