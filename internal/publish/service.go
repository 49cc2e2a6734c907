// Package publish は取得済みの記事から出力ターゲットごとのフィードを生成・保存する。
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/ljfeed/internal/feed"
	"github.com/hitoshi/ljfeed/internal/model"
	"github.com/hitoshi/ljfeed/internal/output"
)

// Assembler はフィード文書組み立てのインターフェース。
type Assembler interface {
	Assemble(owner string, entries []model.Entry) (*feed.Document, error)
}

// FileWriter はフィード文書書き込みのインターフェース。
type FileWriter interface {
	Write(target model.Target, text string, freshness time.Time) (output.Result, error)
}

// MetricsRecorder はPublisherが記録するメトリクスのインターフェース。
type MetricsRecorder interface {
	RecordOutputFailed(variant string)
	RecordPublishLatency(duration time.Duration)
}

// TargetResult は1ターゲットの処理結果を表す。
type TargetResult struct {
	Target  model.Target
	Entries int  // フィルタ後の記事数
	Written bool // falseかつErrがnilの場合は鮮度によるスキップ
	Err     error
}

// Report は1回のPublishの結果をまとめたもの。
// Resultsはtargetsと同じ順序で並ぶ。
type Report struct {
	Results []TargetResult
}

// Written は書き込まれたターゲット数を返す。
func (r *Report) Written() int {
	n := 0
	for _, res := range r.Results {
		if res.Written {
			n++
		}
	}
	return n
}

// Service は出力ターゲットごとにフィード生成と書き込みを行う。
type Service struct {
	assembler   Assembler
	writer      FileWriter
	logger      *slog.Logger
	metrics     MetricsRecorder
	concurrency int
}

// NewService はServiceの新しいインスタンスを生成する。
// concurrencyが0以下の場合は1（逐次処理）を使用する。
func NewService(
	assembler Assembler,
	writer FileWriter,
	logger *slog.Logger,
	metrics MetricsRecorder,
	concurrency int,
) *Service {
	if concurrency <= 0 {
		concurrency = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		assembler:   assembler,
		writer:      writer,
		logger:      logger,
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Publish は全ターゲットのフィードを生成し、必要なものだけ書き込む。
//
// 記事が0件の場合はどのファイルにも触れずにEMPTY_ENTRY_COLLECTIONを返す。
// あるターゲットの失敗は他のターゲットの処理に影響しない。
// 失敗したターゲットのエラーはerrors.Joinでまとめて返す。
func (s *Service) Publish(ctx context.Context, owner string, entries []model.Entry, targets []model.Target) (*Report, error) {
	if len(entries) == 0 {
		return nil, model.NewEmptyEntryCollectionError()
	}
	if len(targets) == 0 {
		return nil, model.NewInvalidConfigError("no output targets")
	}

	start := time.Now()
	report := &Report{Results: make([]TargetResult, len(targets))}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, target := range targets {
		g.Go(func() error {
			report.Results[i] = s.publishTarget(ctx, owner, entries, target)
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for _, res := range report.Results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("target %s (%s): %w", res.Target.Variant, res.Target.Path, res.Err))
		}
	}

	duration := time.Since(start)
	if s.metrics != nil {
		s.metrics.RecordPublishLatency(duration)
	}
	s.logger.Info("フィード生成が完了しました",
		slog.String("owner", owner),
		slog.Int("entries", len(entries)),
		slog.Int("targets", len(targets)),
		slog.Int("written", report.Written()),
		slog.Int("failed", len(errs)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)

	return report, errors.Join(errs...)
}

// publishTarget は1ターゲット分のフィルタ・組み立て・書き込みを行う。
func (s *Service) publishTarget(ctx context.Context, owner string, entries []model.Entry, target model.Target) TargetResult {
	res := TargetResult{Target: target}

	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	selected := target.Variant.Filter(entries)
	res.Entries = len(selected)

	doc, err := s.assembler.Assemble(owner, selected)
	if err != nil {
		s.logger.Error("フィードの組み立てに失敗しました",
			slog.String("variant", string(target.Variant)),
			slog.String("path", target.Path),
			slog.String("error", err.Error()),
		)
		if s.metrics != nil {
			s.metrics.RecordOutputFailed(string(target.Variant))
		}
		res.Err = err
		return res
	}

	written, err := s.writer.Write(target, doc.Text, doc.Updated)
	if err != nil {
		s.logger.Error("フィードファイルの書き込みに失敗しました",
			slog.String("variant", string(target.Variant)),
			slog.String("path", target.Path),
			slog.String("error", err.Error()),
		)
		res.Err = err
		return res
	}

	res.Written = written.Written
	return res
}
