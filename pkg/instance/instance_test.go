package instance

import (
	"os"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIDPrefersConfiguredWorkerID(t *testing.T) {
	t.Setenv(envWorkerID, " cron-7 ")
	assert.Equal(t, "cron-7", ID())
}

func TestIDFallsBackToHostAndPid(t *testing.T) {
	t.Setenv(envWorkerID, "")
	id := ID()
	assert.True(t, strings.HasSuffix(id, ":"+strconv.Itoa(os.Getpid())), id)
}
