// Package testing flips the application into test mode when imported by a test binary.
package testing

import (
	"os"
	"sync"
	stdtesting "testing"
)

var once sync.Once

func ensureTestMode() {
	once.Do(func() {
		_ = os.Setenv("MODCAT_TEST_MODE", "1")
		if os.Getenv("TOKEN_BACKEND") == "" {
			_ = os.Setenv("TOKEN_BACKEND", "memory")
		}
	})
}

func init() {
	ensureTestMode()
}

// TestMain can be delegated to from package tests that need test mode before any init.
func TestMain(m *stdtesting.M) {
	ensureTestMode()
	os.Exit(m.Run())
}
