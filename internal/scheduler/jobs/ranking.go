package jobs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/wonny/factorband/internal/contracts"
	"github.com/wonny/factorband/internal/scheduler"
	"github.com/wonny/factorband/pkg/logger"
	"github.com/wonny/factorband/pkg/redis"
)

// RankingComputer ranks every configured strategy for a date
type RankingComputer interface {
	ComputeAll(ctx context.Context, date time.Time) (map[string]*contracts.RankingResult, error)
}

// Lock is the subset of *redis.Locker the job uses
type Lock interface {
	Acquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, owner string) error
}

// lockTTL bounds how long a crashed instance blocks the others
const lockTTL = 30 * time.Minute

// RankingRefreshJob recomputes and persists rankings after the close
// ⭐ SSOT: 랭킹 갱신 스케줄은 이 Job에서만
type RankingRefreshJob struct {
	rankings RankingComputer
	locker   Lock
	owner    string
	schedule string
	now      func() time.Time
	logger   *logger.Logger
}

// NewRankingRefreshJob creates a new ranking refresh job.
// owner identifies this scheduler instance in the distributed lock.
func NewRankingRefreshJob(rankings RankingComputer, locker Lock, owner, schedule string, log *logger.Logger) *RankingRefreshJob {
	return &RankingRefreshJob{
		rankings: rankings,
		locker:   locker,
		owner:    owner,
		schedule: schedule,
		now:      time.Now,
		logger:   log,
	}
}

// WithClock replaces the wall clock used to pick the ranking date
func (j *RankingRefreshJob) WithClock(now func() time.Time) *RankingRefreshJob {
	j.now = now
	return j
}

// Name returns the job name
func (j *RankingRefreshJob) Name() string {
	return "ranking_refresh"
}

// Schedule returns the cron schedule (weekdays after the close by default)
func (j *RankingRefreshJob) Schedule() string {
	return j.schedule
}

// Run ranks all strategies for today
func (j *RankingRefreshJob) Run(ctx context.Context, attempt scheduler.SyncAttempt) (scheduler.SyncAttempt, error) {
	now := j.now()
	date := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	j.logger.WithFields(map[string]interface{}{
		"date":    date.Format("2006-01-02"),
		"attempt": attempt.Count + 1,
		"max":     attempt.Max,
	}).Info("Starting scheduled ranking refresh")

	key := redis.LockKey(j.Name(), date)
	acquired, err := j.locker.Acquire(ctx, key, j.owner, lockTTL)
	if err != nil {
		err = fmt.Errorf("acquire lock: %w", err)
		return attempt.Record(err), err
	}
	if !acquired {
		j.logger.WithField("date", date.Format("2006-01-02")).Info("Ranking refresh held by another instance, skipping")
		return attempt.Record(nil), nil
	}
	defer func() {
		if err := j.locker.Release(context.Background(), key, j.owner); err != nil {
			j.logger.WithError(err).Warn("Failed to release ranking lock")
		}
	}()

	results, err := j.rankings.ComputeAll(ctx, date)
	if err != nil {
		err = fmt.Errorf("compute rankings: %w", err)
		return attempt.Record(err), err
	}

	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	degraded := 0
	for _, name := range names {
		r := results[name]
		if r.Error != nil {
			degraded++
			j.logger.WithFields(map[string]interface{}{
				"strategy": name,
				"code":     r.Error.Code,
				"message":  r.Error.Message,
			}).Warn("Ranking produced no selection")
			continue
		}
		j.logger.WithFields(map[string]interface{}{
			"strategy": name,
			"selected": len(r.Entries),
			"warnings": len(r.Warnings),
		}).Debug("Ranking refreshed")
	}

	j.logger.WithFields(map[string]interface{}{
		"date":       date.Format("2006-01-02"),
		"strategies": len(results),
		"degraded":   degraded,
	}).Info("Ranking refresh completed")

	return attempt.Record(nil), nil
}
