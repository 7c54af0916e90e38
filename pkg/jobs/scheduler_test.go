package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSchedule(t *testing.T) {
	_, err := ParseSchedule("*/5 * * * *")
	require.NoError(t, err)
	_, err = ParseSchedule("@every 10m")
	require.NoError(t, err)

	for _, spec := range []string{"", "   ", "every five minutes", "* * * * * *"} {
		_, err := ParseSchedule(spec)
		assert.Error(t, err, spec)
	}
}

func TestSchedulerNextUsesLocation(t *testing.T) {
	denver, err := time.LoadLocation("America/Denver")
	require.NoError(t, err)

	s, err := NewScheduler("probe", "0 6 * * *", func(context.Context) error { return nil }, SchedulerConfig{Location: denver})
	require.NoError(t, err)

	next := s.Next(time.Date(2024, 6, 10, 15, 0, 0, 0, time.UTC))
	assert.True(t, next.Equal(time.Date(2024, 6, 11, 6, 0, 0, 0, denver)), next.String())
}

func TestSchedulerRunOnceAppliesTimeout(t *testing.T) {
	s, err := NewScheduler("probe", "@every 1h", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, SchedulerConfig{Timeout: 20 * time.Millisecond})
	require.NoError(t, err)

	err = s.RunOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSchedulerRunOnceReturnsTaskError(t *testing.T) {
	boom := errors.New("boom")
	s, err := NewScheduler("probe", "@every 1h", func(context.Context) error { return boom }, SchedulerConfig{})
	require.NoError(t, err)
	assert.ErrorIs(t, s.RunOnce(context.Background()), boom)
}

func TestSchedulerStartRunsTask(t *testing.T) {
	var runs int32
	s, err := NewScheduler("probe", "@every 1s", func(context.Context) error {
		atomic.AddInt32(&runs, 1)
		return nil
	}, SchedulerConfig{})
	require.NoError(t, err)

	s.Start(context.Background())
	s.Start(context.Background())
	defer s.Stop()

	require.Eventually(t, func() bool { return atomic.LoadInt32(&runs) > 0 }, 3*time.Second, 50*time.Millisecond)
}

func TestSchedulerStopWithoutStart(t *testing.T) {
	s, err := NewScheduler("probe", "@every 1h", func(context.Context) error { return nil }, SchedulerConfig{})
	require.NoError(t, err)
	s.Stop()
}
