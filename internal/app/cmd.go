package app

import "strings"

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandRun はfriendspageを1回取得してフィードを更新することを示す。
	CommandRun Command = "run"
	// CommandBuild はネットワークを使わず、JSONファイルの記事からフィードを生成することを示す。
	CommandBuild Command = "build"
	// CommandWorker は定期取得と監視用HTTPサーバーを起動することを示す。
	CommandWorker Command = "worker"
	// CommandCheck は生成済みフィードをパースして検証することを示す。
	CommandCheck Command = "check"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// ParseCommand はコマンドライン引数からサブコマンドを解析し、残りの引数とともに返す。
// 引数が空、またはフラグから始まる場合はCommandRunとし、引数をすべてフラグとして扱う。
// サポート外のコマンド名もCommandRunとして扱い、残りの引数に含める。
func ParseCommand(args []string) (Command, []string) {
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return CommandRun, args
	}

	switch Command(args[0]) {
	case CommandRun, CommandBuild, CommandWorker, CommandCheck, CommandHealthcheck:
		return Command(args[0]), args[1:]
	default:
		return CommandRun, args
	}
}
