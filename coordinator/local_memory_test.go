package coordinator

import (
	gocontext "context"
	"testing"
	"time"

	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func TestLocalMemoryCoordinator_Get(t *testing.T) {
	Convey("Given LocalMemoryCoordinator", t, func() {
		crd := NewLocalMemory()
		ctx := gocontext.Background()
		So(crd.Put(ctx, "testKey", "testValue"), ShouldBeNil)

		Convey("It should retrieve item using Get", func() {
			var val string
			err := crd.Get(ctx, "testKey", &val)
			So(err, ShouldBeNil)
			So(val, ShouldEqual, "testValue")
		})

		Convey("It should return ErrNotFound on absent keys", func() {
			var val string
			So(crd.Get(ctx, "absent", &val), ShouldEqual, ErrNotFound)
		})
	})
}

func TestLocalMemoryCoordinator_Scan(t *testing.T) {
	Convey("Given LocalMemoryCoordinator", t, func() {
		crd := NewLocalMemory()
		ctx := gocontext.Background()
		So(crd.Put(ctx, "testKey2", "testValue"), ShouldBeNil)
		So(crd.Put(ctx, "testKey", "testValue"), ShouldBeNil)
		So(crd.Put(ctx, "testKey1", "testValue"), ShouldBeNil)
		So(crd.Put(ctx, "jestKey1", "testValue1"), ShouldBeNil)
		_, err := crd.IncrementCounter(ctx, "testKeyCounter")
		So(err, ShouldBeNil)

		Convey("It should retrieve items sorted by key using Scan", func() {
			items, err := crd.Scan(ctx, "testKey")
			So(err, ShouldBeNil)

			So(items, ShouldHaveLength, 3)
			So([]string{items[0].Key, items[1].Key, items[2].Key}, ShouldResemble, []string{"testKey", "testKey1", "testKey2"})
		})
	})
}

func TestLocalMemoryCoordinator_Counter(t *testing.T) {
	Convey("Given LocalMemoryCoordinator", t, func() {
		crd := NewLocalMemory()
		ctx := gocontext.Background()

		Convey("Counters should start from zero and increase by one", func() {
			cnt, err := crd.ReadCounter(ctx, "counter")
			So(err, ShouldBeNil)
			So(cnt, ShouldEqual, int64(0))

			for i := 1; i <= 3; i++ {
				cnt, err = crd.IncrementCounter(ctx, "counter")
				So(err, ShouldBeNil)
				So(cnt, ShouldEqual, int64(i))
			}
			cnt, err = crd.ReadCounter(ctx, "counter")
			So(err, ShouldBeNil)
			So(cnt, ShouldEqual, int64(3))
		})

		Convey("Reading a non-counter key should fail", func() {
			So(crd.Put(ctx, "value", 1), ShouldBeNil)
			_, err := crd.ReadCounter(ctx, "value")
			So(err, ShouldEqual, ErrNotCounter)
		})
	})
}

func TestLocalMemoryCoordinator_Commit(t *testing.T) {
	Convey("Given LocalMemoryCoordinator", t, func() {
		crd := NewLocalMemory()
		ctx := gocontext.Background()
		So(crd.Put(ctx, "old/a", 1), ShouldBeNil)
		So(crd.Put(ctx, "old/b", 2), ShouldBeNil)

		Convey("Committing a transaction should apply all operations", func() {
			txn := NewTxn().
				Put("new/a", map[string]int{"x": 1}).
				IncrementCounter("new/count").
				IncrementCounter("new/count").
				Delete("old/")
			results, err := crd.Commit(ctx, txn)
			So(err, ShouldBeNil)
			So(results, ShouldHaveLength, 4)
			So(results[2].Counter, ShouldEqual, int64(2))
			So(results[3].Deleted, ShouldEqual, int64(2))

			var v map[string]int
			So(crd.Get(ctx, "new/a", &v), ShouldBeNil)
			So(v["x"], ShouldEqual, 1)

			items, err := crd.Scan(ctx, "old/")
			So(err, ShouldBeNil)
			So(items, ShouldBeEmpty)
		})
	})
}

func TestLocalMemoryCoordinator_Watch(t *testing.T) {
	crd := NewLocalMemory()
	defer crd.Close()

	ctx, cancel := gocontext.WithCancel(gocontext.Background())
	events := crd.Watch(ctx, "status/")

	require.NoError(t, crd.Put(ctx, "status/a", "running"))
	require.NoError(t, crd.Put(ctx, "other/a", "ignored"))
	_, err := crd.IncrementCounter(ctx, "status/count")
	require.NoError(t, err)
	_, err = crd.Delete(ctx, "status/a")
	require.NoError(t, err)

	expected := []EventType{PutEvent, CounterEvent, DeleteEvent}
	for _, typ := range expected {
		select {
		case ev := <-events:
			require.Equal(t, typ, ev.Type)
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %s event", typ)
		}
	}

	cancel()
	select {
	case _, ok := <-events:
		require.False(t, ok, "channel should be closed after cancel")
	case <-time.After(3 * time.Second):
		t.Fatal("watch channel was not closed")
	}
}

func TestLocalMemoryCoordinator_SimulatedError(t *testing.T) {
	expected := errors.New("etcd unavailable")
	crd := NewLocalMemory(WithSimulatedError(expected))

	require.Equal(t, expected, crd.Put(gocontext.Background(), "k", "v"))
	_, err := crd.IncrementCounter(gocontext.Background(), "k")
	require.Equal(t, expected, err)
}
