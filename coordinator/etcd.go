package coordinator

import (
	"context"
	"time"

	"github.com/creasty/defaults"
	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"
	"github.com/therne/errorist"
	"go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.etcd.io/etcd/client/v3/namespace"
)

// Etcd keeps job state in etcd. Counters are keys holding counterMark,
// counted by their version.
type Etcd struct {
	Client  *clientv3.Client
	KV      clientv3.KV
	Watcher clientv3.Watcher

	option EtcdOptions
}

type EtcdOptions struct {
	DialTimeout time.Duration `default:"5s"`
	OpTimeout   time.Duration `default:"3s"`
}

func defaultEtcdOptions() (o EtcdOptions) {
	if err := defaults.Set(&o); err != nil {
		panic(err)
	}
	return
}

// NewEtcd connects to etcd. Every key is stored under nsPrefix.
func NewEtcd(endpoints []string, nsPrefix string, opts ...EtcdOptions) (*Etcd, error) {
	option := defaultEtcdOptions()
	if len(opts) > 0 {
		option = opts[0]
	}

	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   endpoints,
		DialTimeout: option.DialTimeout,
	})
	if err != nil {
		return nil, errors.Wrap(err, "connect to etcd")
	}
	return &Etcd{
		Client:  cli,
		KV:      namespace.NewKV(cli.KV, nsPrefix),
		Watcher: namespace.NewWatcher(cli.Watcher, nsPrefix),
		option:  option,
	}, nil
}

func (e *Etcd) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, e.option.OpTimeout)
}

func (e *Etcd) Get(ctx context.Context, key string, valuePtr interface{}) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	resp, err := e.KV.Get(ctx, key)
	if err != nil {
		return errors.Wrapf(err, "get %s", key)
	}
	if len(resp.Kvs) == 0 || isCounter(resp.Kvs[0]) {
		return ErrNotFound
	}
	return jsoniter.Unmarshal(resp.Kvs[0].Value, valuePtr)
}

func (e *Etcd) Scan(ctx context.Context, prefix string) ([]RawItem, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	resp, err := e.KV.Get(ctx, prefix, clientv3.WithPrefix(), clientv3.WithSort(clientv3.SortByKey, clientv3.SortAscend))
	if err != nil {
		return nil, errors.Wrapf(err, "scan %s", prefix)
	}
	return scannedItems(resp.Kvs), nil
}

// scannedItems converts a range response into items, leaving counters out.
func scannedItems(kvs []*mvccpb.KeyValue) []RawItem {
	return lo.FilterMap(kvs, func(kv *mvccpb.KeyValue, _ int) (RawItem, bool) {
		if isCounter(kv) {
			return RawItem{}, false
		}
		return RawItem{Key: string(kv.Key), Value: kv.Value}, true
	})
}

func (e *Etcd) Watch(ctx context.Context, prefix string) <-chan WatchEvent {
	events := make(chan WatchEvent, watchBufferSize)
	wc := e.Watcher.Watch(ctx, prefix, clientv3.WithPrefix())

	go func() {
		defer close(events)
		defer func() {
			if err := errorist.WrapPanic(recover()); err != nil {
				log.Error().Err(err).Str("prefix", prefix).Msg("panic occurred while watching")
			}
		}()
		for wr := range wc {
			if err := wr.Err(); err != nil {
				log.Warn().Err(err).Str("prefix", prefix).Msg("watch error")
				continue
			}
			for _, ev := range wr.Events {
				select {
				case events <- toWatchEvent(ev):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return events
}

func toWatchEvent(ev *clientv3.Event) WatchEvent {
	key := string(ev.Kv.Key)
	switch {
	case ev.Type == mvccpb.DELETE:
		return WatchEvent{Type: DeleteEvent, Item: RawItem{Key: key}}
	case isCounter(ev.Kv):
		return WatchEvent{Type: CounterEvent, Item: RawItem{Key: key}, Counter: ev.Kv.Version}
	default:
		return WatchEvent{Type: PutEvent, Item: RawItem{Key: key, Value: ev.Kv.Value}}
	}
}

func (e *Etcd) Put(ctx context.Context, key string, value interface{}) error {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	encoded, err := jsoniter.MarshalToString(value)
	if err != nil {
		return errors.Wrapf(err, "encode %s", key)
	}
	if _, err := e.KV.Put(ctx, key, encoded); err != nil {
		return errors.Wrapf(err, "put %s", key)
	}
	return nil
}

// Commit applies every operation of the transaction atomically.
func (e *Etcd) Commit(ctx context.Context, txn *Txn) ([]TxnResult, error) {
	ops, err := etcdOps(txn)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	resp, err := e.KV.Txn(ctx).Then(ops...).Commit()
	if err != nil {
		return nil, errors.Wrap(err, "commit transaction")
	}
	return txnResults(txn, resp.Responses), nil
}

func etcdOps(txn *Txn) ([]clientv3.Op, error) {
	ops := make([]clientv3.Op, 0, len(txn.Ops))
	for _, op := range txn.Ops {
		switch op.Type {
		case PutEvent:
			encoded, err := jsoniter.MarshalToString(op.Value)
			if err != nil {
				return nil, errors.Wrapf(err, "encode %s", op.Key)
			}
			ops = append(ops, clientv3.OpPut(op.Key, encoded))
		case CounterEvent:
			ops = append(ops, clientv3.OpPut(op.Key, counterMark, clientv3.WithPrevKV()))
		case DeleteEvent:
			ops = append(ops, deleteOp(op.Key))
		default:
			return nil, errors.Errorf("unknown operation %s on %s", op.Type, op.Key)
		}
	}
	return ops, nil
}

func txnResults(txn *Txn, responses []*etcdserverpb.ResponseOp) []TxnResult {
	results := make([]TxnResult, len(responses))
	for i, res := range responses {
		results[i].Type = txn.Ops[i].Type
		switch txn.Ops[i].Type {
		case CounterEvent:
			results[i].Counter = counterAfterPut(res.GetResponsePut().GetPrevKv())
		case DeleteEvent:
			results[i].Deleted = res.GetResponseDeleteRange().GetDeleted()
		}
	}
	return results
}

func (e *Etcd) IncrementCounter(ctx context.Context, key string) (int64, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	resp, err := e.KV.Put(ctx, key, counterMark, clientv3.WithPrevKV())
	if err != nil {
		return 0, errors.Wrapf(err, "increment %s", key)
	}
	return counterAfterPut(resp.PrevKv), nil
}

// counterAfterPut returns the version a counter key has after being put once more.
func counterAfterPut(prev *mvccpb.KeyValue) int64 {
	if prev == nil {
		return 1
	}
	return prev.Version + 1
}

func (e *Etcd) ReadCounter(ctx context.Context, key string) (int64, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	resp, err := e.KV.Get(ctx, key)
	if err != nil {
		return 0, errors.Wrapf(err, "read counter %s", key)
	}
	if len(resp.Kvs) == 0 {
		return 0, nil
	}
	if !isCounter(resp.Kvs[0]) {
		return 0, ErrNotCounter
	}
	return resp.Kvs[0].Version, nil
}

func (e *Etcd) Delete(ctx context.Context, prefix string) (int64, error) {
	ctx, cancel := e.opContext(ctx)
	defer cancel()

	key, opts := deleteRange(prefix)
	resp, err := e.KV.Delete(ctx, key, opts...)
	if err != nil {
		return 0, errors.Wrapf(err, "delete %s", prefix)
	}
	return resp.Deleted, nil
}

func deleteOp(prefix string) clientv3.Op {
	key, opts := deleteRange(prefix)
	return clientv3.OpDelete(key, opts...)
}

// deleteRange covers every key under the prefix. An empty prefix covers the whole namespace.
func deleteRange(prefix string) (string, []clientv3.OpOption) {
	if prefix == "" {
		return "\x00", []clientv3.OpOption{clientv3.WithFromKey()}
	}
	return prefix, []clientv3.OpOption{clientv3.WithPrefix()}
}

func isCounter(kv *mvccpb.KeyValue) bool {
	return string(kv.Value) == counterMark
}

func (e *Etcd) Close() error {
	return e.Client.Close()
}

var _ Coordinator = (*Etcd)(nil)
