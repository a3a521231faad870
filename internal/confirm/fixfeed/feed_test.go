package fixfeed

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"egress/internal/geo"
)

func TestRequestFixReceivesFreshReport(t *testing.T) {
	feed := New()

	done := make(chan struct{})
	var got geo.Point
	var err error
	go func() {
		defer close(done)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		got, err = feed.RequestFix(ctx, "track-1")
	}()

	// Give the request a moment to register its waiter.
	time.Sleep(20 * time.Millisecond)
	fix := geo.NewPoint(52.52, 13.405, 15, time.Now())
	feed.Report("track-1", fix)

	<-done
	require.NoError(t, err)
	assert.Equal(t, fix, got)
}

func TestRequestFixTimesOutWithoutReport(t *testing.T) {
	feed := New()
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := feed.RequestFix(ctx, "track-quiet")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRequestFixIgnoresStaleReport(t *testing.T) {
	now := time.Now()
	feed := New(WithClock(func() time.Time { return now }))

	errCh := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()
		_, err := feed.RequestFix(ctx, "track-stale")
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	// Captured a minute before the request; must not satisfy it.
	stale := geo.NewPoint(52.52, 13.405, 15, now.Add(-time.Minute))
	feed.Report("track-stale", stale)

	err := <-errCh
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestReportWithNoWaitersIsDropped(t *testing.T) {
	feed := New()
	feed.Report("track-nobody", geo.NewPoint(1, 2, 10, time.Now()))
	// Nothing to assert beyond not blocking or panicking.
}

func TestReportFansOutToAllWaiters(t *testing.T) {
	feed := New()

	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			_, err := feed.RequestFix(ctx, "track-multi")
			results <- err
		}()
	}

	time.Sleep(20 * time.Millisecond)
	feed.Report("track-multi", geo.NewPoint(52.52, 13.405, 15, time.Now()))

	for i := 0; i < 2; i++ {
		assert.NoError(t, <-results)
	}
}
