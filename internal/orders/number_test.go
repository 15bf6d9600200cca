package orders

import (
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderNumberFormat(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	number := NewOrderNumber(now)
	assert.Regexp(t, `^ORD-[0-9A-Z]+-[0-9A-Z]{4}$`, number)

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	millis, err := strconv.ParseInt(strings.ToLower(parts[1]), 36, 64)
	require.NoError(t, err)
	assert.Equal(t, now.UnixMilli(), millis)
}

func TestNewOrderNumberVariesWithinSameMillisecond(t *testing.T) {
	now := time.Now()
	seen := map[string]struct{}{}
	for i := 0; i < 50; i++ {
		seen[NewOrderNumber(now)] = struct{}{}
	}
	assert.Greater(t, len(seen), 1)
}

func TestNormalizeOrderNumber(t *testing.T) {
	assert.Equal(t, "ORD-ABC-12XY", NormalizeOrderNumber("  ord-abc-12xy "))
}
