package coordinator

import (
	gocontext "context"
	"os"
	"strings"
	"testing"

	"github.com/ab180/merchantagg/internal/util"
	"github.com/stretchr/testify/require"
	"go.etcd.io/etcd/api/v3/etcdserverpb"
	"go.etcd.io/etcd/api/v3/mvccpb"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// TestEtcd runs against a real etcd when MERCHANTAGG_TEST_ETCD_ENDPOINT is set.
func TestEtcd(t *testing.T) {
	endpoints := os.Getenv("MERCHANTAGG_TEST_ETCD_ENDPOINT")
	if endpoints == "" {
		t.Skip("MERCHANTAGG_TEST_ETCD_ENDPOINT is not set")
	}
	crd, err := NewEtcd(strings.Split(endpoints, ","), util.GenerateID("merchantagg-test-")+"/")
	require.NoError(t, err)
	defer crd.Close()
	defer crd.Delete(gocontext.Background(), "")

	testCoordinator(t, crd, "contract/")
}

func TestEtcdOps(t *testing.T) {
	ops, err := etcdOps(NewTxn().
		Put("jobs/a", map[string]string{"phase": "done"}).
		IncrementCounter("jobs/a/count").
		Delete("jobs/old/").
		Delete(""))
	require.NoError(t, err)
	require.Len(t, ops, 4)

	require.True(t, ops[0].IsPut())
	require.Equal(t, "jobs/a", string(ops[0].KeyBytes()))
	require.JSONEq(t, `{"phase":"done"}`, string(ops[0].ValueBytes()))

	require.True(t, ops[1].IsPut())
	require.Equal(t, counterMark, string(ops[1].ValueBytes()))

	require.True(t, ops[2].IsDelete())
	require.Equal(t, "jobs/old/", string(ops[2].KeyBytes()))
	require.Equal(t, clientv3.GetPrefixRangeEnd("jobs/old/"), string(ops[2].RangeBytes()))

	require.True(t, ops[3].IsDelete())
	require.Equal(t, "\x00", string(ops[3].KeyBytes()))

	_, err = etcdOps(&Txn{Ops: []BatchOp{{Type: EventType(42), Key: "x"}}})
	require.Error(t, err)
}

func TestTxnResults(t *testing.T) {
	txn := NewTxn().Put("a", 1).IncrementCounter("b").IncrementCounter("c").Delete("d/")
	results := txnResults(txn, []*etcdserverpb.ResponseOp{
		{Response: &etcdserverpb.ResponseOp_ResponsePut{ResponsePut: &etcdserverpb.PutResponse{}}},
		{Response: &etcdserverpb.ResponseOp_ResponsePut{ResponsePut: &etcdserverpb.PutResponse{}}},
		{Response: &etcdserverpb.ResponseOp_ResponsePut{ResponsePut: &etcdserverpb.PutResponse{
			PrevKv: &mvccpb.KeyValue{Key: []byte("c"), Value: []byte(counterMark), Version: 4},
		}}},
		{Response: &etcdserverpb.ResponseOp_ResponseDeleteRange{ResponseDeleteRange: &etcdserverpb.DeleteRangeResponse{Deleted: 3}}},
	})

	require.Equal(t, []TxnResult{
		{Type: PutEvent},
		{Type: CounterEvent, Counter: 1},
		{Type: CounterEvent, Counter: 5},
		{Type: DeleteEvent, Deleted: 3},
	}, results)
}

func TestToWatchEvent(t *testing.T) {
	put := toWatchEvent(&clientv3.Event{Type: mvccpb.PUT, Kv: &mvccpb.KeyValue{Key: []byte("k"), Value: []byte(`"v"`)}})
	require.Equal(t, WatchEvent{Type: PutEvent, Item: RawItem{Key: "k", Value: []byte(`"v"`)}}, put)

	counter := toWatchEvent(&clientv3.Event{Type: mvccpb.PUT, Kv: &mvccpb.KeyValue{Key: []byte("c"), Value: []byte(counterMark), Version: 7}})
	require.Equal(t, WatchEvent{Type: CounterEvent, Item: RawItem{Key: "c"}, Counter: 7}, counter)

	deleted := toWatchEvent(&clientv3.Event{Type: mvccpb.DELETE, Kv: &mvccpb.KeyValue{Key: []byte("k")}})
	require.Equal(t, WatchEvent{Type: DeleteEvent, Item: RawItem{Key: "k"}}, deleted)
}

func TestScannedItems(t *testing.T) {
	items := scannedItems([]*mvccpb.KeyValue{
		{Key: []byte("a"), Value: []byte("1")},
		{Key: []byte("b"), Value: []byte(counterMark)},
		{Key: []byte("c"), Value: []byte("2")},
	})
	require.Equal(t, []RawItem{
		{Key: "a", Value: []byte("1")},
		{Key: "c", Value: []byte("2")},
	}, items)
}
