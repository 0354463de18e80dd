package integration

import (
	"os"
	"testing"

	"github.com/rs/zerolog/log"
)

// EnvKeyIntegration turns on integration tests. Those store job status on a real etcd.
const EnvKeyIntegration = "MERCHANTAGG_TEST_INTEGRATION"

// IsIntegrationTest is true when MERCHANTAGG_TEST_INTEGRATION is set.
var IsIntegrationTest = lookupIntegration()

func lookupIntegration() bool {
	if _, ok := os.LookupEnv(EnvKeyIntegration); !ok {
		return false
	}
	log.Info().Msg("Running integration tests against etcd.")
	return true
}

// RunOnIntegrationTest skips the test unless integration tests are turned on.
func RunOnIntegrationTest(t *testing.T) {
	if !IsIntegrationTest {
		t.Skipf("%s runs only on integration test.", t.Name())
	}
}
