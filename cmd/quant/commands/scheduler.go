package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/factorband/internal/scheduler"
	"github.com/wonny/factorband/internal/scheduler/jobs"
	"github.com/wonny/factorband/pkg/redis"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 즉시 실행합니다.

등록되는 작업:
- ranking_refresh: 평일 장 마감 후 (SCHEDULER_RANKING_SPEC, 기본 18:00)

여러 인스턴스가 떠 있어도 Redis 잠금으로 하루 한 번만 실행됩니다.

Subcommands:
  start   - 스케줄러 시작
  run     - 특정 작업 즉시 실행

Example:
  go run ./cmd/quant scheduler start
  go run ./cmd/quant scheduler run ranking_refresh`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작 (Ctrl+C로 종료)",
		RunE:  runScheduler,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runSchedulerJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// initScheduler registers every job against the wired services
func initScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.cfg.Scheduler.MaxRetries, a.log)

	locker := redis.NewLocker(a.redis, keyPrefix)
	ranking := jobs.NewRankingRefreshJob(a.rankings, locker, owner(), a.cfg.Scheduler.RankingSpec, a.log)
	if err := sched.AddJob(ranking); err != nil {
		return nil, fmt.Errorf("add %s: %w", ranking.Name(), err)
	}

	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.cfg.Scheduler.Enabled {
		PrintWarning("SCHEDULER_ENABLED=false, nothing to do")
		return nil
	}

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	sched.Start()

	PrintSuccess("Scheduler started")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.Next(jobName)
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	return nil
}

func runSchedulerJob(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := initScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	result, err := sched.Trigger(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	PrintKeyValue("Job", result.JobName, 9)
	PrintKeyValue("Duration", result.Duration.String(), 9)
	PrintKeyValue("Attempts", fmt.Sprintf("%d (max retries %d)", result.Attempt.Count, result.Attempt.Max), 9)
	if !result.Success {
		PrintError(result.Error)
		return fmt.Errorf("job %s failed", result.JobName)
	}
	PrintSuccess("Job completed")
	return nil
}
