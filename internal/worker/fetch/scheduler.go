// Package fetch はfriendspageの定期取得とフィード更新を提供する。
// スケジューラ、1回分のサイクル、バックオフ戦略を含む。
package fetch

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Job はスケジューラが定期実行する処理のインターフェース。
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler は一定間隔でJobを実行する。
// 取得失敗が続いた場合は指数バックオフで実行を間引く。
// afterJobsはJobの成否に関係なく毎回実行される（一時ファイルの掃除など）。
type Scheduler struct {
	job       Job
	afterJobs []Job
	logger    *slog.Logger

	mu                sync.Mutex
	interval          time.Duration
	consecutiveErrors int
	skipTicks         int
}

// NewScheduler はSchedulerの新しいインスタンスを生成する。
func NewScheduler(job Job, logger *slog.Logger, afterJobs ...Job) *Scheduler {
	return &Scheduler{
		job:       job,
		afterJobs: afterJobs,
		logger:    logger,
		interval:  time.Minute,
	}
}

// Start はinterval間隔のティッカーでスケジューラを起動する。
// 起動直後に1回実行し、コンテキストがキャンセルされるまで実行を継続する。
func (s *Scheduler) Start(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.mu.Lock()
	s.interval = interval
	s.mu.Unlock()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.logger.Info("スケジューラを開始しました",
		slog.Duration("interval", interval),
	)

	// 起動直後に1回実行
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("スケジューラを停止しました")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if err := s.RunOnce(ctx); err != nil {
		s.logger.Error("サイクルの実行に失敗しました",
			slog.String("error", err.Error()),
		)
	}
	for _, j := range s.afterJobs {
		if err := j.Run(ctx); err != nil {
			s.logger.Error("後処理ジョブの実行に失敗しました",
				slog.String("error", err.Error()),
			)
		}
	}
}

// RunOnce はバックオフ中でなければJobを1回実行する。
// バックオフ中は残りのティック数を1つ減らしてスキップする。
func (s *Scheduler) RunOnce(ctx context.Context) error {
	s.mu.Lock()
	if s.skipTicks > 0 {
		s.skipTicks--
		remaining := s.skipTicks
		s.mu.Unlock()
		s.logger.Info("バックオフ中のためサイクルをスキップします",
			slog.Int("remaining_skips", remaining),
		)
		return nil
	}
	s.mu.Unlock()

	err := s.job.Run(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err == nil {
		s.consecutiveErrors = 0
		return nil
	}
	if ShouldBackoff(err) {
		s.consecutiveErrors++
		delay := CalculateBackoff(s.interval, s.consecutiveErrors)
		s.skipTicks = int(delay/s.interval) - 1
		if s.skipTicks > 0 {
			s.logger.Warn("取得失敗が続いているため次回実行を遅らせます",
				slog.Int("consecutive_errors", s.consecutiveErrors),
				slog.Duration("delay", delay),
			)
		}
	}
	return err
}
