package job

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ab180/merchantagg/coordinator"
	"github.com/ab180/merchantagg/metric"
	"github.com/ab180/merchantagg/partitions"
	"github.com/pkg/errors"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/stretchr/testify/require"
)

func newTestJob() *Job {
	return &Job{
		ID:          "J1",
		Name:        "test",
		Partitions:  partitions.PlanForNumberOf(2),
		SubmittedAt: time.Now(),
	}
}

func TestStatusManager(t *testing.T) {
	Convey("Given a status manager of a created job", t, func() {
		ctx := context.Background()
		crd := coordinator.NewLocalMemory()
		sm := NewStatusManager(crd, newTestJob())
		So(sm.Create(ctx), ShouldBeNil)

		st, err := sm.Status(ctx)
		So(err, ShouldBeNil)
		So(st.Phase, ShouldEqual, Loading)

		Convey("When running through every phase", func() {
			for _, next := range []Phase{Mapping, Shuffling, Grouping, Reducing, Done} {
				So(sm.Transition(ctx, next), ShouldBeNil)
			}

			Convey("The stored status should be done with completion time", func() {
				st, err := sm.Status(ctx)
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, Done)
				So(st.CompletedAt, ShouldNotBeNil)
			})

			Convey("No more transitions should be allowed", func() {
				So(sm.Fail(ctx), ShouldNotBeNil)
			})
		})

		Convey("When skipping a phase", func() {
			err := sm.Transition(ctx, Grouping)

			Convey("It should be rejected", func() {
				So(err, ShouldNotBeNil)
				So(sm.Phase(), ShouldEqual, Loading)
			})
		})

		Convey("When a task fails", func() {
			So(sm.Transition(ctx, Mapping), ShouldBeNil)
			tid := TaskID{JobID: "J1", StageName: MapStage, PartitionID: "input/a.csv"}
			So(sm.MarkTaskAsFailed(ctx, tid, 3, errors.New("disk error")), ShouldBeNil)
			So(sm.Fail(ctx), ShouldBeNil)

			Convey("The job should be failed with the error of the task", func() {
				st, err := sm.Status(ctx)
				So(err, ShouldBeNil)
				So(st.Phase, ShouldEqual, Failed)
				So(st.Errors, ShouldHaveLength, 1)
				So(st.Errors[0].Task, ShouldEqual, tid.String())
				So(st.Errors[0].Message, ShouldEqual, "disk error")
			})
		})
	})
}

func TestStatusManager_CollectMetrics(t *testing.T) {
	ctx := context.Background()
	sm := NewStatusManager(coordinator.NewLocalMemory(), newTestJob())
	require.NoError(t, sm.Create(ctx))

	var wg sync.WaitGroup
	for _, p := range []string{"a", "b", "c"} {
		wg.Add(1)
		go func(p string) {
			defer wg.Done()
			tid := TaskID{JobID: "J1", StageName: MapStage, PartitionID: p}
			_, err := sm.MarkTaskAsSucceed(ctx, tid, 1, metric.Metrics{"records": 10})
			require.NoError(t, err)
		}(p)
	}
	wg.Wait()

	done, err := sm.MarkTaskAsSucceed(ctx, TaskID{JobID: "J1", StageName: ReduceStage, PartitionID: "0"}, 2, metric.Metrics{"keys": 4})
	require.NoError(t, err)
	require.EqualValues(t, 1, done)

	require.NoError(t, sm.MarkTaskAsFailed(ctx, TaskID{JobID: "J1", StageName: ReduceStage, PartitionID: "1"}, 3, errors.New("x")))

	m, err := sm.CollectMetrics(ctx)
	require.NoError(t, err)
	require.Equal(t, metric.Metrics{"map/records": 30, "reduce/keys": 4}, m)
}

func TestTrack(t *testing.T) {
	ctx := context.Background()
	crd := coordinator.NewLocalMemory()
	defer crd.Close()

	sm := NewStatusManager(crd, newTestJob())
	require.NoError(t, sm.Create(ctx))

	var (
		mu     sync.Mutex
		phases []Phase
	)
	stopped := Track(ctx, crd, "J1", func(st *Status) {
		mu.Lock()
		phases = append(phases, st.Phase)
		mu.Unlock()
	})

	require.NoError(t, sm.Transition(ctx, Mapping))
	require.NoError(t, sm.Fail(ctx))

	select {
	case <-stopped:
	case <-time.After(3 * time.Second):
		t.Fatal("tracking should stop on a terminal phase")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []Phase{Mapping, Failed}, phases)
}
