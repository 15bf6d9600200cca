package orders

import (
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

const (
	orderNumberPrefix = "ORD"
	base36Alphabet    = "0123456789abcdefghijklmnopqrstuvwxyz"
	randomTokenLength = 4
)

// NumberGenerator produces order numbers. Implementations must be safe for
// concurrent use.
type NumberGenerator func(now time.Time) string

// NewOrderNumber formats ORD-<base36 unix millis>-<4 random base36>, uppercase.
func NewOrderNumber(now time.Time) string {
	token := make([]byte, randomTokenLength)
	for i := range token {
		token[i] = base36Alphabet[rand.IntN(len(base36Alphabet))]
	}
	stamp := strconv.FormatInt(now.UnixMilli(), 36)
	return strings.ToUpper(orderNumberPrefix + "-" + stamp + "-" + string(token))
}

// NormalizeOrderNumber canonicalises user supplied order numbers for lookup.
func NormalizeOrderNumber(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}
