package order

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

// MaxCounter is the largest counter value the fixed-width order number format
// can encode.
const MaxCounter = 999999

const (
	suffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	suffixLength   = 8

	idSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	idSuffixLength   = 9
)

// ValidationError reports a violated input constraint by name.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// NewID generates an opaque, globally unique order identifier of the form
// order_{unixMillis}_{9 base36 chars}. The millisecond prefix keeps IDs
// roughly time-sortable.
func NewID() string {
	return fmt.Sprintf("order_%d_%s", time.Now().UnixMilli(), randomString(idSuffixAlphabet, idSuffixLength))
}

// Number derives the human-facing order number for a counter value, formatted
// ORD-{counter:6 digits}-{8 uppercase alphanumerics}. The zero-padded counter
// makes lexicographic order of generated numbers equal counter order, which
// operational tooling relies on.
//
// Counter values must lie in [1, MaxCounter]; violations return a
// *ValidationError naming the broken constraint.
func Number(counter int64) (string, error) {
	switch {
	case counter <= 0:
		return "", &ValidationError{Field: "counter", Reason: fmt.Sprintf("must be positive, got %d", counter)}
	case counter > MaxCounter:
		return "", &ValidationError{Field: "counter", Reason: fmt.Sprintf("must not exceed %d, got %d", MaxCounter, counter)}
	}

	return fmt.Sprintf("ORD-%06d-%s", counter, randomString(suffixAlphabet, suffixLength)), nil
}

// randomString draws n characters from alphabet using crypto/rand.
func randomString(alphabet string, n int) string {
	max := big.NewInt(int64(len(alphabet)))

	var b strings.Builder
	b.Grow(n)
	for range n {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the process has bigger problems.
			panic(fmt.Sprintf("order: reading random bytes: %v", err))
		}
		b.WriteByte(alphabet[idx.Int64()])
	}
	return b.String()
}
