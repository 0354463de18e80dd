package integration

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ab180/merchantagg"
	"github.com/ab180/merchantagg/coordinator"
	"github.com/rs/zerolog/log"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/thoas/go-funk"
)

const (
	etcdEndpointEnvKey  = "MERCHANTAGG_TEST_ETCD_ENDPOINT"
	defaultEtcdEndpoint = "127.0.0.1:2379"
)

// StoreOptions returns options storing job status on etcd on integration tests.
// Otherwise, job status is kept in memory.
func StoreOptions() merchantagg.Options {
	opt := merchantagg.DefaultOptions()
	if !IsIntegrationTest {
		return opt
	}
	opt.EtcdEndpoints = []string{etcdEndpoint()}
	opt.EtcdNamespace = testNamespace()
	return opt
}

// ProvideEtcd provides coordinator.Etcd on integration tests.
// Otherwise, an in-memory coordinator is provided.
func ProvideEtcd() (crd coordinator.Coordinator, closer func()) {
	if !IsIntegrationTest {
		crd := coordinator.NewLocalMemory()
		return crd, func() {
			So(crd.Close(), ShouldBeNil)
		}
	}
	etcd, err := coordinator.NewEtcd([]string{etcdEndpoint()}, testNamespace())
	So(err, ShouldBeNil)

	// clean all items under test namespace
	closer = func() {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()

		log.Info().Msg("Closing etcd")
		_, err := etcd.Delete(ctx, "")
		So(err, ShouldBeNil)
		So(etcd.Close(), ShouldBeNil)
	}
	return etcd, closer
}

func etcdEndpoint() string {
	if endpoint, ok := os.LookupEnv(etcdEndpointEnvKey); ok {
		return endpoint
	}
	return defaultEtcdEndpoint
}

func testNamespace() string {
	return fmt.Sprintf("merchantagg_test_%s/", strings.ToLower(funk.RandomString(10)))
}
