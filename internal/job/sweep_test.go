package job

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cineseat/internal/event"
	"cineseat/internal/repository"
)

type fakeExpirer struct {
	batches [][]repository.StaleOrder
	err     error
	calls   int
}

func (f *fakeExpirer) ExpireStale(ctx context.Context) ([]repository.StaleOrder, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if len(f.batches) == 0 {
		return nil, nil
	}
	batch := f.batches[0]
	f.batches = f.batches[1:]
	return batch, nil
}

func TestExpirySweepDispatchesPerOrder(t *testing.T) {
	exp := &fakeExpirer{batches: [][]repository.StaleOrder{{
		{OrderID: 1, Reference: "ref-1", UserID: 10, ShowtimeID: 7, SeatIDs: []uint64{3, 4}},
		{OrderID: 2, Reference: "ref-2", UserID: 11, ShowtimeID: 7, SeatIDs: []uint64{9}},
	}}}

	reg := event.NewRegistry()
	var got []event.Event
	reg.On(event.OrderExpired, "capture", func(ctx context.Context, ev event.Event) error {
		got = append(got, ev)
		return nil
	})

	NewExpirySweep(exp, reg).Run(context.Background())

	require.Len(t, got, 2)
	assert.Equal(t, uint64(1), got[0].OrderID)
	assert.Equal(t, []uint64{3, 4}, got[0].SeatIDs)
	assert.Equal(t, uint64(7), got[1].ShowtimeID)
}

func TestExpirySweepSecondPassIsQuiet(t *testing.T) {
	exp := &fakeExpirer{batches: [][]repository.StaleOrder{{
		{OrderID: 5, ShowtimeID: 2, SeatIDs: []uint64{1}},
	}}}

	reg := event.NewRegistry()
	var dispatched int
	reg.On(event.OrderExpired, "count", func(ctx context.Context, ev event.Event) error {
		dispatched++
		return nil
	})

	sweep := NewExpirySweep(exp, reg)
	sweep.Run(context.Background())
	sweep.Run(context.Background())

	assert.Equal(t, 2, exp.calls)
	assert.Equal(t, 1, dispatched, "a swept order is only announced once")
}

func TestExpirySweepSurvivesStoreError(t *testing.T) {
	exp := &fakeExpirer{err: errors.New("db gone")}
	reg := event.NewRegistry()

	sweep := NewExpirySweep(exp, reg)
	assert.NotPanics(t, func() { sweep.Run(context.Background()) })
	assert.Equal(t, 1, exp.calls)
}
