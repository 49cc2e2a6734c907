package fetch

import (
	"time"

	"github.com/hitoshi/ljfeed/internal/model"
)

const (
	// maxBackoff は指数バックオフの最大遅延（12時間）。
	maxBackoff = 12 * time.Hour
)

// CalculateBackoff は連続エラー回数に基づいて次回実行までの遅延を計算する。
// 1回目はbase、以降2倍ずつ増加し、最大12時間（baseが12時間を超える場合はbase）。
func CalculateBackoff(base time.Duration, consecutiveErrors int) time.Duration {
	delay := base
	if delay >= maxBackoff {
		return delay
	}
	for i := 1; i < consecutiveErrors; i++ {
		delay *= 2
		if delay > maxBackoff {
			return maxBackoff
		}
	}
	return delay
}

// ShouldBackoff はサイクルの失敗が次回実行を遅らせるべきものかを判定する。
// 取得失敗と不正な応答のみが対象で、ファイル書き込み失敗や記事0件は次のティックで再試行する。
func ShouldBackoff(err error) bool {
	return model.HasCode(err, model.ErrCodeTransportFailure) ||
		model.HasCode(err, model.ErrCodeMalformedEntry)
}
