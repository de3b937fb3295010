package preprocess

import (
	"testing"

	"go.uber.org/goleak"
)

// TestMain verifies the worker pool leaves no goroutines behind
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("github.com/patrickmn/go-cache.(*janitor).Run"),
		goleak.IgnoreTopFunction("database/sql.(*DB).connectionOpener"),
	)
}
