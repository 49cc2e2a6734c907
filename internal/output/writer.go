// Package output はフィード文書のファイル出力を提供する。
//
// 既存ファイルの更新時刻が鮮度タイムスタンプより新しい場合は何もしない。
// それ以外は同一ディレクトリの一時ファイルに書き込んでからrenameで置き換えるため、
// 読み手が書きかけのファイルを観測することはない。
package output

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hitoshi/ljfeed/internal/model"
)

// filePerm は出力ファイルのパーミッション。
const filePerm = 0o644

// MetricsRecorder は出力結果のメトリクス記録インターフェース。
type MetricsRecorder interface {
	RecordOutputWritten(variant string)
	RecordOutputSkipped(variant string)
	RecordOutputFailed(variant string)
}

// Options はWriterの動作設定。
type Options struct {
	// Debug が有効な場合、スキップ判定や一時ファイルの詳細をログに出す。
	Debug bool
}

// Result は1ターゲットへの書き込み結果を表す。
type Result struct {
	Path    string
	Written bool // falseの場合は既存ファイルが十分新しいためスキップした
}

// Writer はフィード文書をアトミックにファイルへ書き込む。
type Writer struct {
	logger  *slog.Logger
	metrics MetricsRecorder
	opts    Options
}

// NewWriter はWriterの新しいインスタンスを生成する。
// metricsがnilの場合はメトリクスを記録しない。
func NewWriter(logger *slog.Logger, metrics MetricsRecorder, opts Options) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{
		logger:  logger,
		metrics: metrics,
		opts:    opts,
	}
}

// Write はtargetのパスにtextを書き込む。
// 既存ファイルの更新時刻がfreshnessより厳密に新しい場合はスキップする。
// 失敗時は一時ファイルを削除し、FILESYSTEM_FAILUREエラーを返す。
func (w *Writer) Write(target model.Target, text string, freshness time.Time) (Result, error) {
	res := Result{Path: target.Path}

	fresh, err := w.isFresh(target.Path, freshness)
	if err != nil {
		w.recordFailed(target)
		return res, model.NewFilesystemFailureError(target.Path, err)
	}
	if fresh {
		if w.opts.Debug {
			w.logger.Debug("出力ファイルは最新のためスキップします",
				slog.String("path", target.Path),
				slog.String("variant", string(target.Variant)),
				slog.Time("freshness", freshness),
			)
		}
		if w.metrics != nil {
			w.metrics.RecordOutputSkipped(string(target.Variant))
		}
		return res, nil
	}

	if err := w.replace(target.Path, text); err != nil {
		w.recordFailed(target)
		return res, model.NewFilesystemFailureError(target.Path, err)
	}

	res.Written = true
	if w.metrics != nil {
		w.metrics.RecordOutputWritten(string(target.Variant))
	}
	w.logger.Info("フィードファイルを書き込みました",
		slog.String("path", target.Path),
		slog.String("variant", string(target.Variant)),
		slog.Int("bytes", len(text)),
	)
	return res, nil
}

// isFresh は既存ファイルがfreshnessより新しいかを判定する。
// ファイルが存在しない場合は常にfalseを返す。
func (w *Writer) isFresh(path string, freshness time.Time) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return info.ModTime().After(freshness), nil
}

// replace は同一ディレクトリの一時ファイル経由でpathを置き換える。
// 同一ディレクトリであることが、renameが同一ファイルシステム内でアトミックになる前提となる。
func (w *Writer) replace(path, text string) (err error) {
	dir, base := filepath.Split(path)
	if dir == "" {
		dir = "."
	}

	tmp, err := os.CreateTemp(dir, "."+base+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if w.opts.Debug {
		w.logger.Debug("一時ファイルを作成しました", slog.String("tmp", tmpName))
	}

	defer func() {
		if err != nil {
			tmp.Close()
			if rmErr := os.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
				w.logger.Warn("一時ファイルの削除に失敗しました",
					slog.String("tmp", tmpName),
					slog.String("error", rmErr.Error()),
				)
			}
		}
	}()

	if _, err = tmp.WriteString(text); err != nil {
		return err
	}
	if err = tmp.Sync(); err != nil {
		return err
	}
	if err = tmp.Chmod(filePerm); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

func (w *Writer) recordFailed(target model.Target) {
	if w.metrics != nil {
		w.metrics.RecordOutputFailed(string(target.Variant))
	}
}
