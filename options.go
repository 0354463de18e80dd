package merchantagg

import (
	"github.com/ab180/merchantagg/coordinator"
	"github.com/creasty/defaults"
	"github.com/pkg/errors"
)

type Options struct {
	// EtcdEndpoints selects etcd as the job status store. Job status is kept in memory when empty.
	EtcdEndpoints []string
	EtcdNamespace string `default:"merchantagg/"`
	EtcdOptions   coordinator.EtcdOptions
}

func DefaultOptions() (o Options) {
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	return
}

// ConnectCoordinator opens the job status store described by the options.
func ConnectCoordinator(opt Options) (coordinator.Coordinator, error) {
	if len(opt.EtcdEndpoints) == 0 {
		return coordinator.NewLocalMemory(), nil
	}
	if err := defaults.Set(&opt.EtcdOptions); err != nil {
		return nil, errors.Wrap(err, "set etcd defaults")
	}
	etcd, err := coordinator.NewEtcd(opt.EtcdEndpoints, opt.EtcdNamespace, opt.EtcdOptions)
	if err != nil {
		return nil, errors.Wrap(err, "connect etcd")
	}
	return etcd, nil
}
