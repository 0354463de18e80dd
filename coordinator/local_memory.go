package coordinator

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/lo"
)

const watchBufferSize = 64

type localMemoryCoordinator struct {
	opt localMemoryOptions

	mu       sync.RWMutex
	data     map[string][]byte
	counters map[string]int64
	closed   chan struct{}
	once     sync.Once

	// notifyMu serializes event delivery and subscription removal.
	notifyMu      sync.Mutex
	subscriptions []*subscription
}

type subscription struct {
	prefix string
	events chan WatchEvent
	done   <-chan struct{}
}

// NewLocalMemory creates an in-process coordinator.
func NewLocalMemory(opts ...LocalMemoryOption) Coordinator {
	var opt localMemoryOptions
	for _, o := range opts {
		o(&opt)
	}
	return &localMemoryCoordinator{
		opt:      opt,
		data:     make(map[string][]byte),
		counters: make(map[string]int64),
		closed:   make(chan struct{}),
	}
}

func (lmc *localMemoryCoordinator) simulate(ctx context.Context) error {
	if lmc.opt.simulatedDelay > 0 {
		select {
		case <-time.After(lmc.opt.simulatedDelay):
		case <-ctx.Done():
		}
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return lmc.opt.simulatedError
}

func (lmc *localMemoryCoordinator) Get(ctx context.Context, key string, valuePtr interface{}) error {
	if err := lmc.simulate(ctx); err != nil {
		return err
	}
	lmc.mu.RLock()
	raw, ok := lmc.data[key]
	lmc.mu.RUnlock()
	if !ok {
		return ErrNotFound
	}
	if string(raw) == counterMark {
		return ErrNotFound
	}
	return jsoniter.Unmarshal(raw, valuePtr)
}

// Scan returns items under the prefix sorted by key. Counters are not included.
func (lmc *localMemoryCoordinator) Scan(ctx context.Context, prefix string) (results []RawItem, err error) {
	if err := lmc.simulate(ctx); err != nil {
		return nil, err
	}
	lmc.mu.RLock()
	for k, v := range lmc.data {
		if strings.HasPrefix(k, prefix) && string(v) != counterMark {
			results = append(results, RawItem{Key: k, Value: v})
		}
	}
	lmc.mu.RUnlock()

	sort.Slice(results, func(i, j int) bool {
		return results[i].Key < results[j].Key
	})
	return results, nil
}

func (lmc *localMemoryCoordinator) Put(ctx context.Context, key string, value interface{}) error {
	if err := lmc.simulate(ctx); err != nil {
		return err
	}
	raw, err := jsoniter.Marshal(value)
	if err != nil {
		return err
	}
	lmc.mu.Lock()
	ev := lmc.put(key, raw)
	lmc.mu.Unlock()

	lmc.notify(ev)
	return nil
}

func (lmc *localMemoryCoordinator) put(key string, raw []byte) WatchEvent {
	lmc.data[key] = raw
	delete(lmc.counters, key)
	return WatchEvent{
		Type: PutEvent,
		Item: RawItem{Key: key, Value: raw},
	}
}

func (lmc *localMemoryCoordinator) IncrementCounter(ctx context.Context, key string) (count int64, err error) {
	if err = lmc.simulate(ctx); err != nil {
		return
	}
	lmc.mu.Lock()
	ev := lmc.incrementCounter(key)
	lmc.mu.Unlock()

	lmc.notify(ev)
	return ev.Counter, nil
}

func (lmc *localMemoryCoordinator) incrementCounter(key string) WatchEvent {
	lmc.data[key] = []byte(counterMark)
	lmc.counters[key]++
	return WatchEvent{
		Type:    CounterEvent,
		Item:    RawItem{Key: key},
		Counter: lmc.counters[key],
	}
}

func (lmc *localMemoryCoordinator) ReadCounter(ctx context.Context, key string) (count int64, err error) {
	if err := lmc.simulate(ctx); err != nil {
		return 0, err
	}
	lmc.mu.RLock()
	defer lmc.mu.RUnlock()

	raw, ok := lmc.data[key]
	if !ok {
		return 0, nil
	}
	if string(raw) != counterMark {
		return 0, ErrNotCounter
	}
	return lmc.counters[key], nil
}

// Commit applies all operations of the transaction atomically.
func (lmc *localMemoryCoordinator) Commit(ctx context.Context, txn *Txn) ([]TxnResult, error) {
	if err := lmc.simulate(ctx); err != nil {
		return nil, err
	}
	encoded := make([][]byte, len(txn.Ops))
	for i, op := range txn.Ops {
		if op.Type != PutEvent {
			continue
		}
		raw, err := jsoniter.Marshal(op.Value)
		if err != nil {
			return nil, err
		}
		encoded[i] = raw
	}

	var events []WatchEvent
	results := make([]TxnResult, len(txn.Ops))

	lmc.mu.Lock()
	for i, op := range txn.Ops {
		results[i].Type = op.Type
		switch op.Type {
		case PutEvent:
			events = append(events, lmc.put(op.Key, encoded[i]))
		case CounterEvent:
			ev := lmc.incrementCounter(op.Key)
			results[i].Counter = ev.Counter
			events = append(events, ev)
		case DeleteEvent:
			deleted := lmc.delete(op.Key)
			results[i].Deleted = int64(len(deleted))
			events = append(events, deleted...)
		}
	}
	lmc.mu.Unlock()

	lmc.notify(events...)
	return results, nil
}

func (lmc *localMemoryCoordinator) Delete(ctx context.Context, prefix string) (deleted int64, err error) {
	if err = lmc.simulate(ctx); err != nil {
		return
	}
	lmc.mu.Lock()
	events := lmc.delete(prefix)
	lmc.mu.Unlock()

	lmc.notify(events...)
	return int64(len(events)), nil
}

func (lmc *localMemoryCoordinator) delete(prefix string) (events []WatchEvent) {
	keys := lo.Filter(lo.Keys(lmc.data), func(k string, _ int) bool {
		return strings.HasPrefix(k, prefix)
	})
	sort.Strings(keys)
	for _, k := range keys {
		delete(lmc.data, k)
		delete(lmc.counters, k)
		events = append(events, WatchEvent{
			Type: DeleteEvent,
			Item: RawItem{Key: k},
		})
	}
	return events
}

func (lmc *localMemoryCoordinator) Watch(ctx context.Context, prefix string) <-chan WatchEvent {
	done := make(chan struct{})
	sub := &subscription{
		prefix: prefix,
		events: make(chan WatchEvent, watchBufferSize),
		done:   done,
	}
	lmc.notifyMu.Lock()
	lmc.subscriptions = append(lmc.subscriptions, sub)
	lmc.notifyMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
		case <-lmc.closed:
		}
		close(done)

		lmc.notifyMu.Lock()
		defer lmc.notifyMu.Unlock()
		lmc.subscriptions = lo.Without(lmc.subscriptions, sub)
		close(sub.events)
	}()
	return sub.events
}

func (lmc *localMemoryCoordinator) notify(events ...WatchEvent) {
	lmc.notifyMu.Lock()
	defer lmc.notifyMu.Unlock()

	for _, ev := range events {
		for _, sub := range lmc.subscriptions {
			if !strings.HasPrefix(ev.Item.Key, sub.prefix) {
				continue
			}
			select {
			case sub.events <- ev:
			case <-sub.done:
			}
		}
	}
}

func (lmc *localMemoryCoordinator) Close() error {
	lmc.once.Do(func() {
		close(lmc.closed)
	})
	return nil
}

type localMemoryOptions struct {
	simulatedDelay time.Duration
	simulatedError error
}

type LocalMemoryOption func(*localMemoryOptions)

func WithSimulatedDelay(delay time.Duration) LocalMemoryOption {
	return func(opt *localMemoryOptions) {
		opt.simulatedDelay = delay
	}
}

func WithSimulatedError(err error) LocalMemoryOption {
	return func(opt *localMemoryOptions) {
		opt.simulatedError = err
	}
}
