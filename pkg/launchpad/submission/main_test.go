package submission

import (
	"testing"

	"go.uber.org/goleak"
)

// Confirmation polling must not outlive the call that started it.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}
