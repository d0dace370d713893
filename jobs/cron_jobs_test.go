package jobs

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type countingWarmer struct {
	calls atomic.Int32
	err   error
}

func (c *countingWarmer) Warm(ctx context.Context) error {
	c.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("warm-up must be bounded")
	}
	return c.err
}

type countingPruner struct {
	calls atomic.Int32
}

func (c *countingPruner) PrunePositions() int {
	c.calls.Add(1)
	return 2
}

type countingCache struct {
	calls atomic.Int32
}

func (c *countingCache) PruneCache() int {
	c.calls.Add(1)
	return 500
}

func TestJobs_RunNow(t *testing.T) {
	warmer := &countingWarmer{}
	pruner := &countingPruner{}
	cache := &countingCache{}
	j, err := InitCronJobs("*/30 * * * *", warmer, pruner, cache, clockwork.NewFakeClock(), zap.NewNop())
	require.NoError(t, err)

	j.Start()
	require.NoError(t, j.WarmNow())
	require.NoError(t, j.PruneNow())

	assert.Eventually(t, func() bool {
		return warmer.calls.Load() == 1 && pruner.calls.Load() >= 1 && cache.calls.Load() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, j.Shutdown())
}

func TestJobs_FailuresAreLogged(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	warmer := &countingWarmer{err: errors.New("anilist down")}
	j, err := InitCronJobs("0 * * * *", warmer, &countingPruner{}, &countingCache{}, clockwork.NewFakeClock(), zap.New(core))
	require.NoError(t, err)

	j.Start()
	require.NoError(t, j.WarmNow())
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("job failed").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, j.Shutdown())

	entry := logs.FilterMessage("job failed").All()[0]
	assert.Equal(t, "catalog-warmup", entry.ContextMap()["job"])
}

func TestJobs_InvalidSchedule(t *testing.T) {
	_, err := InitCronJobs("every now and then", &countingWarmer{}, &countingPruner{}, &countingCache{}, clockwork.NewFakeClock(), zap.NewNop())
	assert.Error(t, err)
}

func TestJobs_PruneLogsRemovedResponses(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	cache := &countingCache{}
	j, err := InitCronJobs("0 * * * *", &countingWarmer{}, &countingPruner{}, cache, clockwork.NewFakeClock(), zap.New(core))
	require.NoError(t, err)

	j.Start()
	require.NoError(t, j.PruneNow())
	assert.Eventually(t, func() bool {
		return logs.FilterMessage("catalog responses pruned").Len() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, j.Shutdown())

	entry := logs.FilterMessage("catalog responses pruned").All()[0]
	assert.EqualValues(t, 500, entry.ContextMap()["removed"])
}
