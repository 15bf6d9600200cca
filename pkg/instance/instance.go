// Package instance names the running process for lock ownership and logs.
package instance

import (
	"os"
	"strconv"
	"strings"
)

const envWorkerID = "MARKET_WORKER_ID"

// ID identifies this process. MARKET_WORKER_ID wins; otherwise the host
// name and pid are combined so two workers on one host never share a lock
// token.
func ID() string {
	if id := strings.TrimSpace(os.Getenv(envWorkerID)); id != "" {
		return id
	}
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "worker"
	}
	return host + ":" + strconv.Itoa(os.Getpid())
}
