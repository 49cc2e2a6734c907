package app

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/hitoshi/ljfeed/internal/config"
	"github.com/hitoshi/ljfeed/internal/feed"
	"github.com/hitoshi/ljfeed/internal/handler"
	"github.com/hitoshi/ljfeed/internal/ljclient"
	"github.com/hitoshi/ljfeed/internal/logger"
	"github.com/hitoshi/ljfeed/internal/markup"
	"github.com/hitoshi/ljfeed/internal/metrics"
	"github.com/hitoshi/ljfeed/internal/model"
	"github.com/hitoshi/ljfeed/internal/output"
	"github.com/hitoshi/ljfeed/internal/publish"
	"github.com/hitoshi/ljfeed/internal/security"
	"github.com/hitoshi/ljfeed/internal/worker/cleanup"
	fetchpkg "github.com/hitoshi/ljfeed/internal/worker/fetch"
)

var (
	// stdin はbuild -input - の読み込み元。
	stdin io.Reader = os.Stdin
	// overrideHTTPClient が設定されている場合、エンドポイント検証を省略してこのクライアントを使用する。
	overrideHTTPClient *http.Client
)

// Init はアプリケーションの初期化を行う。
// 設定ファイル・環境変数・フラグの順でConfigを組み立て、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer, opts *options) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(opts.configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	opts.applyTo(cfg)

	logger.SetupDefault(w, cfg.Debug)
	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, rest := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "9090"
		}
		return runHealthcheck(port)
	}

	opts, err := parseFlags(cmd, rest, w)
	if errors.Is(err, flag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	cfg, err := Init(w, opts)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("user", cfg.User),
		slog.Int("targets", len(cfg.Targets())),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	switch cmd {
	case CommandBuild:
		return runBuild(ctx, cfg, opts.input)
	case CommandWorker:
		return runWorker(ctx, cfg)
	case CommandCheck:
		return runCheck(cfg)
	default:
		return runOnce(ctx, cfg)
	}
}

// components はコマンド間で共有する依存関係。
type components struct {
	registry  *prometheus.Registry
	collector *metrics.Collector
	publisher *publish.Service
}

// newComponents はフィード生成パイプラインをワイヤリングする。
func newComponents(cfg *config.Config, log *slog.Logger) *components {
	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	var sanitizer markup.Sanitizer
	if cfg.Sanitize {
		sanitizer = security.NewContentSanitizer()
	}
	assembler := feed.NewAssembler(markup.NewRewriter(sanitizer), nil)
	writer := output.NewWriter(log, collector, output.Options{Debug: cfg.Debug})

	return &components{
		registry:  registry,
		collector: collector,
		publisher: publish.NewService(assembler, writer, log, collector, cfg.Concurrency),
	}
}

// newCycle はfriendspage取得とフィード更新の1サイクルを組み立てる。
func newCycle(cfg *config.Config, c *components, log *slog.Logger) (*fetchpkg.Cycle, error) {
	client, err := ljclient.NewClient(log, ljclient.Options{
		Endpoint:   cfg.Endpoint,
		Timeout:    cfg.Timeout,
		HTTPClient: overrideHTTPClient,
	})
	if err != nil {
		return nil, err
	}

	passMD5 := cfg.PasswordMD5
	if passMD5 == "" {
		passMD5 = ljclient.PasswordMD5(cfg.Password)
	}

	return fetchpkg.NewCycle(
		client, c.publisher, c.collector, log,
		fetchpkg.Account{User: cfg.User, PassMD5: passMD5},
		cfg.Targets(),
	), nil
}

// runOnce はfriendspageを1回取得し、全ターゲットのフィードを更新する。
func runOnce(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	log := slog.Default()
	cycle, err := newCycle(cfg, newComponents(cfg, log), log)
	if err != nil {
		return err
	}
	return cycle.Run(ctx)
}

// friendsPageFile はbuildコマンドが読み込むJSONの形式。
type friendsPageFile struct {
	Entries []map[string]any `json:"entries"`
}

// runBuild はJSONで保存されたfriendspageからフィードを生成する。
// 認証情報は不要。inputが"-"の場合は標準入力から読む。
func runBuild(ctx context.Context, cfg *config.Config, input string) error {
	if err := cfg.Validate(false); err != nil {
		return err
	}

	var r io.Reader = stdin
	if input != "-" {
		f, err := os.Open(input)
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	var page friendsPageFile
	if err := dec.Decode(&page); err != nil {
		return fmt.Errorf("failed to parse input %s: %w", input, err)
	}

	entries, err := model.EntriesFromFields(page.Entries)
	if err != nil {
		return err
	}

	log := slog.Default()
	_, err = newComponents(cfg, log).publisher.Publish(ctx, cfg.User, entries, cfg.Targets())
	return err
}

// runWorker は定期取得スケジューラと監視用HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runWorker(ctx context.Context, cfg *config.Config) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	log := slog.Default()
	c := newComponents(cfg, log)
	cycle, err := newCycle(cfg, c, log)
	if err != nil {
		return err
	}

	targets := cfg.Targets()
	scheduler := fetchpkg.NewScheduler(cycle, log, cleanup.NewTempFileJob(targets, log))

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:   log,
		Gatherer: c.registry,
		Targets:  targets,
	})
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("HTTP server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("worker starting",
			slog.Duration("interval", cfg.Interval),
			slog.Int("concurrency", cfg.Concurrency),
		)
		scheduler.Start(gctx, cfg.Interval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down worker...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("worker stopped gracefully")
	return nil
}

// runCheck は設定された各出力ファイルをパースし、タイトル・更新時刻・記事数をログに出す。
// 存在しないファイルやパースできないファイルがあればエラーを返す。
func runCheck(cfg *config.Config) error {
	if err := cfg.Validate(false); err != nil {
		return err
	}

	parser := gofeed.NewParser()
	var errs []error
	for _, t := range cfg.Targets() {
		if err := checkFeed(parser, t); err != nil {
			slog.Error("フィードの検証に失敗しました",
				slog.String("variant", string(t.Variant)),
				slog.String("path", t.Path),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Errorf("%s: %w", t.Path, err))
		}
	}
	return errors.Join(errs...)
}

func checkFeed(parser *gofeed.Parser, t model.Target) error {
	f, err := os.Open(t.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	parsed, err := parser.Parse(f)
	if err != nil {
		return err
	}
	if parsed.FeedType != "atom" {
		return fmt.Errorf("unexpected feed type %q", parsed.FeedType)
	}
	if len(parsed.Items) == 0 {
		return model.NewEmptyEntryCollectionError()
	}

	slog.Info("フィードを検証しました",
		slog.String("variant", string(t.Variant)),
		slog.String("path", t.Path),
		slog.String("title", parsed.Title),
		slog.String("updated", parsed.Updated),
		slog.Int("entries", len(parsed.Items)),
	)
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
