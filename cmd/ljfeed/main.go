// Command ljfeed はLiveJournalのfriendspageをAtomフィードとして書き出す。
//
//	ljfeed [run] [flags]       friendspageを1回取得してフィードを更新する
//	ljfeed build -input FILE   保存済みJSONからフィードを生成する
//	ljfeed worker              定期取得と監視用HTTPサーバーを起動する
//	ljfeed check               生成済みフィードを検証する
//	ljfeed healthcheck         監視用サーバーの/healthを確認する
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/ljfeed/internal/app"
)

func main() {
	if err := app.Run(os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "ljfeed: %v\n", err)
		os.Exit(1)
	}
}
