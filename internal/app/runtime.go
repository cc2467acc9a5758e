package app

import (
	"os"
	"sync"
)

const testModeEnv = "MODCAT_TEST_MODE"

var testMode = sync.OnceValue(func() bool {
	return os.Getenv(testModeEnv) == "1"
})

// InTestMode reports whether MODCAT_TEST_MODE=1 was set when first asked.
// The server binary exits early and request logging is skipped.
func InTestMode() bool {
	return testMode()
}
