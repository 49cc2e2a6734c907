// Package cleanup は出力ディレクトリに残った一時ファイルの削除ジョブを提供する。
// 書き込み途中でプロセスが停止した場合に残る".{name}.*.tmp"を、
// 保持期間（デフォルト1時間）を超えたものだけ削除する。
package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/ljfeed/internal/model"
)

// TempFileJob は期限切れの一時ファイルを削除するジョブ。
// ワーカーのサイクルごとに実行され、冪等な削除処理を保証する。
type TempFileJob struct {
	targets []model.Target
	logger  *slog.Logger
	now     func() time.Time
	MaxAge  time.Duration // 一時ファイルの保持期間（デフォルト: 1時間）
}

// NewTempFileJob は新しいTempFileJobを生成する。
// デフォルトの保持期間は1時間。
func NewTempFileJob(targets []model.Target, logger *slog.Logger) *TempFileJob {
	return &TempFileJob{
		targets: targets,
		logger:  logger,
		now:     time.Now,
		MaxAge:  time.Hour,
	}
}

// Run は各ターゲットの一時ファイルのうち、MaxAgeより古いものを削除する。
// 削除対象がない場合でもエラーにならない。
func (j *TempFileJob) Run(ctx context.Context) error {
	start := time.Now()
	cutoff := j.now().Add(-j.MaxAge)

	var (
		deleted int
		errs    []error
	)
	for _, target := range j.targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		matches, err := filepath.Glob(tempPattern(target.Path))
		if err != nil {
			errs = append(errs, fmt.Errorf("一時ファイルの検索に失敗: %w", err))
			continue
		}

		for _, path := range matches {
			info, err := os.Stat(path)
			if err != nil {
				if !errors.Is(err, fs.ErrNotExist) {
					errs = append(errs, err)
				}
				continue
			}
			if !info.Mode().IsRegular() || !info.ModTime().Before(cutoff) {
				continue
			}
			if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
				errs = append(errs, fmt.Errorf("一時ファイルの削除に失敗: %w", err))
				continue
			}
			deleted++
		}
	}

	if len(errs) > 0 {
		err := errors.Join(errs...)
		j.logger.Error("一時ファイル削除ジョブの実行に失敗しました",
			slog.String("error", err.Error()),
		)
		return err
	}

	duration := time.Since(start)
	j.logger.Info("一時ファイル削除ジョブが完了しました",
		slog.Int("deleted_count", deleted),
		slog.Duration("max_age", j.MaxAge),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return nil
}

// tempPattern は出力パスに対応する一時ファイルのglobパターンを返す。
// output.Writerが作成する名前と一致させる。
func tempPattern(path string) string {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "."+escapeGlob(base)+".*.tmp")
}

func escapeGlob(s string) string {
	var out []rune
	for _, r := range s {
		switch r {
		case '*', '?', '[', '\\':
			out = append(out, '\\')
		}
		out = append(out, r)
	}
	return string(out)
}
