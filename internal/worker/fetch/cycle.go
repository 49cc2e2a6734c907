package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/ljfeed/internal/model"
	"github.com/hitoshi/ljfeed/internal/publish"
)

// FriendsPageFetcher はfriendspage取得のインターフェース。
type FriendsPageFetcher interface {
	GetFriendsPage(ctx context.Context, user, passMD5 string) (*model.FriendsPage, error)
}

// Publisher はフィード生成・書き込みのインターフェース。
type Publisher interface {
	Publish(ctx context.Context, owner string, entries []model.Entry, targets []model.Target) (*publish.Report, error)
}

// MetricsRecorder は取得結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordFetchFailure()
	RecordEntriesFetched(count int)
}

// Account はfriendspageを取得するアカウント。
type Account struct {
	User    string
	PassMD5 string
}

// Cycle はfriendspageを1回取得し、全ターゲットのフィードを更新する。
type Cycle struct {
	fetcher   FriendsPageFetcher
	publisher Publisher
	metrics   MetricsRecorder
	logger    *slog.Logger
	account   Account
	targets   []model.Target
}

// NewCycle はCycleの新しいインスタンスを生成する。
func NewCycle(
	fetcher FriendsPageFetcher,
	publisher Publisher,
	metrics MetricsRecorder,
	logger *slog.Logger,
	account Account,
	targets []model.Target,
) *Cycle {
	return &Cycle{
		fetcher:   fetcher,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		account:   account,
		targets:   targets,
	}
}

// Run は取得と生成を1回実行する。
// 取得に失敗した場合はどの出力ファイルにも触れない。
func (c *Cycle) Run(ctx context.Context) error {
	start := time.Now()

	page, err := c.fetcher.GetFriendsPage(ctx, c.account.User, c.account.PassMD5)
	if err != nil {
		if c.metrics != nil {
			c.metrics.RecordFetchFailure()
		}
		return fmt.Errorf("friendspage取得に失敗: %w", err)
	}
	if c.metrics != nil {
		c.metrics.RecordEntriesFetched(len(page.Entries))
	}

	report, err := c.publisher.Publish(ctx, c.account.User, page.Entries, c.targets)
	if err != nil {
		return fmt.Errorf("フィード生成に失敗: %w", err)
	}

	c.logger.Info("サイクルが完了しました",
		slog.String("user", c.account.User),
		slog.Int("entries", len(page.Entries)),
		slog.Int("written", report.Written()),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return nil
}
