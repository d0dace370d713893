// Package jobs runs the background work of the service: warming the AniList
// catalog cache and pruning expired positions and responses.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
)

const (
	PruneInterval = 15 * time.Minute
	warmTimeout   = 2 * time.Minute
)

type Warmer interface {
	Warm(ctx context.Context) error
}

type Pruner interface {
	PrunePositions() int
}

type CachePruner interface {
	PruneCache() int
}

type Jobs struct {
	scheduler gocron.Scheduler
	warm      gocron.Job
	prune     gocron.Job
	logger    *zap.Logger
}

// InitCronJobs registers the catalog warm-up on schedule (standard five field
// cron) and, every PruneInterval, the pruning of carousel positions and of
// expired catalog responses. Nothing runs until Start.
func InitCronJobs(schedule string, warmer Warmer, pruner Pruner, cache CachePruner, clock clockwork.Clock, logger *zap.Logger) (*Jobs, error) {
	j := &Jobs{logger: logger}

	s, err := gocron.NewScheduler(
		gocron.WithClock(clock),
		gocron.WithLogger(schedulerLogger{logger.Sugar()}),
		gocron.WithGlobalJobOptions(
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithEventListeners(gocron.AfterJobRunsWithError(j.jobFailed)),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	j.scheduler = s

	j.warm, err = s.NewJob(
		gocron.CronJob(schedule, false),
		gocron.NewTask(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), warmTimeout)
			defer cancel()
			return warmer.Warm(ctx)
		}),
		gocron.WithName("catalog-warmup"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule catalog warm-up %q: %w", schedule, err)
	}

	j.prune, err = s.NewJob(
		gocron.DurationJob(PruneInterval),
		gocron.NewTask(func() {
			if n := pruner.PrunePositions(); n > 0 {
				logger.Debug("carousel positions pruned", zap.Int("removed", n))
			}
			if n := cache.PruneCache(); n > 0 {
				logger.Debug("catalog responses pruned", zap.Int("removed", n))
			}
		}),
		gocron.WithName("cache-prune"),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, fmt.Errorf("schedule cache pruning: %w", err)
	}
	return j, nil
}

func (j *Jobs) Start() {
	j.scheduler.Start()
	j.logger.Info("background jobs started", zap.Int("jobs", len(j.scheduler.Jobs())))
}

// Shutdown stops the scheduler and waits for running jobs.
func (j *Jobs) Shutdown() error {
	return j.scheduler.Shutdown()
}

// WarmNow triggers the catalog warm-up outside of its schedule.
func (j *Jobs) WarmNow() error {
	return j.warm.RunNow()
}

func (j *Jobs) PruneNow() error {
	return j.prune.RunNow()
}

func (j *Jobs) jobFailed(id uuid.UUID, name string, err error) {
	j.logger.Warn("job failed", zap.String("job", name), zap.Stringer("job_id", id), zap.Error(err))
}

// schedulerLogger routes gocron's own messages through zap.
type schedulerLogger struct {
	s *zap.SugaredLogger
}

func (l schedulerLogger) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l schedulerLogger) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
func (l schedulerLogger) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l schedulerLogger) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
