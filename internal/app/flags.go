package app

import (
	"flag"
	"fmt"
	"io"

	"github.com/hitoshi/ljfeed/internal/config"
)

// options はコマンドライン引数の解析結果。
type options struct {
	fs *flag.FlagSet

	configPath    string
	user          string
	password      string
	passMD5       string
	output        string
	outputPublic  string
	outputPrivate string
	debug         bool
	input         string // buildのみ
}

// parseFlags はサブコマンドごとのフラグを解析する。
// 位置引数が残った場合はエラーを返す。
func parseFlags(cmd Command, args []string, out io.Writer) (*options, error) {
	o := &options{fs: flag.NewFlagSet("ljfeed "+string(cmd), flag.ContinueOnError)}
	fs := o.fs
	fs.SetOutput(out)

	fs.StringVar(&o.configPath, "config", "", "YAML config file (overrides LJFEED_CONFIG)")
	fs.StringVar(&o.user, "user", "", "LiveJournal user name (LJ_USER)")
	fs.StringVar(&o.password, "password", "", "LiveJournal password (LJ_PASSWORD)")
	fs.StringVar(&o.passMD5, "pass-md5", "", "MD5 hex digest of the password (LJ_PASSWORD_MD5)")
	fs.StringVar(&o.output, "output", "", "combined feed path, default {user}.xml (LJFEED_OUTPUT)")
	fs.StringVar(&o.outputPublic, "output-public", "", "public-only feed path (LJFEED_OUTPUT_PUBLIC)")
	fs.StringVar(&o.outputPrivate, "output-private", "", "restricted-only feed path (LJFEED_OUTPUT_PRIVATE)")
	fs.BoolVar(&o.debug, "debug", false, "verbose logging (LJFEED_DEBUG)")
	if cmd == CommandBuild {
		fs.StringVar(&o.input, "input", "-", "friendspage JSON file, - for stdin")
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", fs.Args())
	}
	return o, nil
}

// applyTo は明示的に指定されたフラグだけでcfgを上書きする。
func (o *options) applyTo(cfg *config.Config) {
	o.fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "user":
			cfg.User = o.user
		case "password":
			cfg.Password = o.password
		case "pass-md5":
			cfg.PasswordMD5 = o.passMD5
		case "output":
			cfg.Output = o.output
		case "output-public":
			cfg.OutputPublic = o.outputPublic
		case "output-private":
			cfg.OutputPrivate = o.outputPrivate
		case "debug":
			cfg.Debug = o.debug
		}
	})
}
