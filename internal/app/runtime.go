package app

import (
	"os"
	"sync/atomic"
)

const testModeEnv = "PROCUREDESK_TEST_MODE"

var testMode atomic.Pointer[bool]

// InTestMode reports whether binaries should return before touching Postgres,
// Redis or the network. The flag is read from the environment on first use.
func InTestMode() bool {
	if v := testMode.Load(); v != nil {
		return *v
	}
	return RefreshTestMode()
}

// RefreshTestMode re-reads PROCUREDESK_TEST_MODE and returns the new value.
func RefreshTestMode() bool {
	on := os.Getenv(testModeEnv) == "1"
	testMode.Store(&on)
	return on
}
