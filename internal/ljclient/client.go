// Package ljclient はLiveJournalのXML-RPC APIからfriendspageを取得する。
package ljclient

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/ljfeed/internal/model"
	"github.com/hitoshi/ljfeed/internal/security"
)

const (
	// DefaultEndpoint はLiveJournalのXML-RPCエンドポイント。
	DefaultEndpoint = "http://livejournal.com/interface/xmlrpc"

	methodGetFriendsPage = "LJ.XMLRPC.getfriendspage"
	userAgentFormat      = "FP-bot, for private usage only (http://%s.livejournal.com; %s@livejournal.com)"

	defaultTimeout     = 30 * time.Second
	defaultMaxBodySize = 16 << 20
	// defaultSpacing は連続したリクエストの最小間隔。
	defaultSpacing = 10 * time.Second
)

// Options はClientの設定。ゼロ値の項目はデフォルト値を使用する。
type Options struct {
	Endpoint    string
	Timeout     time.Duration
	MaxBodySize int64
	// HTTPClient を指定した場合、エンドポイント検証とsafeurlクライアントの生成を省略する。
	HTTPClient *http.Client
	Limiter    *rate.Limiter
}

// Client はfriendspage取得クライアント。
type Client struct {
	httpClient  *http.Client
	limiter     *rate.Limiter
	logger      *slog.Logger
	endpoint    string
	maxBodySize int64
}

// NewClient はClientの新しいインスタンスを生成する。
// エンドポイントが不正な場合はINVALID_CONFIGエラーを返す。
func NewClient(logger *slog.Logger, opts Options) (*Client, error) {
	if opts.Endpoint == "" {
		opts.Endpoint = DefaultEndpoint
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxBodySize <= 0 {
		opts.MaxBodySize = defaultMaxBodySize
	}
	if opts.Limiter == nil {
		opts.Limiter = rate.NewLimiter(rate.Every(defaultSpacing), 1)
	}
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if err := security.ValidateEndpoint(opts.Endpoint); err != nil {
			return nil, model.NewInvalidConfigError(fmt.Sprintf("endpoint: %v", err))
		}
		httpClient = security.NewHTTPClient(opts.Timeout)
	}

	return &Client{
		httpClient:  httpClient,
		limiter:     opts.Limiter,
		logger:      logger,
		endpoint:    opts.Endpoint,
		maxBodySize: opts.MaxBodySize,
	}, nil
}

// PasswordMD5 は平文パスワードからAPIのhpassword値（MD5の16進表記）を求める。
func PasswordMD5(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// GetFriendsPage はuserのfriendspageを取得し、記事を入力順のまま返す。
// 通信失敗・HTTPエラー・faultはTRANSPORT_FAILURE、記事の欠落はMALFORMED_ENTRYとなる。
func (c *Client) GetFriendsPage(ctx context.Context, user, passMD5 string) (*model.FriendsPage, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, model.NewTransportFailureError("rate limiter", err)
	}

	start := time.Now()
	result, err := c.call(ctx, user, methodGetFriendsPage, map[string]any{
		"username":    user,
		"hpassword":   passMD5,
		"auth_method": "clear",
		"ver":         1,
	})
	if err != nil {
		c.logger.Error("friendspageの取得に失敗しました",
			slog.String("user", user),
			slog.String("endpoint", c.endpoint),
			slog.String("error", err.Error()),
		)
		return nil, err
	}

	page, err := friendsPageFrom(result)
	if err != nil {
		return nil, err
	}

	c.logger.Info("friendspageを取得しました",
		slog.String("user", user),
		slog.Int("entries", len(page.Entries)),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return page, nil
}

// call はXML-RPCメソッドを呼び出し、最初の戻り値を返す。
func (c *Client) call(ctx context.Context, user, method string, params map[string]any) (any, error) {
	body, err := encodeCall(method, params)
	if err != nil {
		return nil, model.NewTransportFailureError("encode request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, model.NewTransportFailureError("build request", err)
	}
	req.Header.Set("Content-Type", "text/xml")
	req.Header.Set("User-Agent", fmt.Sprintf(userAgentFormat, user, user))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, model.NewTransportFailureError("http request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, model.NewTransportFailureError(fmt.Sprintf("unexpected HTTP status %d", resp.StatusCode), nil)
	}

	result, err := decodeResponse(io.LimitReader(resp.Body, c.maxBodySize))
	if err != nil {
		return nil, model.NewTransportFailureError("decode response", err)
	}
	return result, nil
}

// friendsPageFrom はgetfriendspageの戻り値を記事一覧に変換する。
func friendsPageFrom(result any) (*model.FriendsPage, error) {
	top, ok := result.(map[string]any)
	if !ok {
		return nil, model.NewTransportFailureError(fmt.Sprintf("unexpected result type %T", result), nil)
	}

	raw, ok := top["entries"]
	if !ok {
		return nil, model.NewTransportFailureError("result has no entries member", nil)
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, model.NewTransportFailureError(fmt.Sprintf("entries has unexpected type %T", raw), nil)
	}

	records := make([]map[string]any, 0, len(list))
	for i, item := range list {
		rec, ok := item.(map[string]any)
		if !ok {
			return nil, model.NewMalformedEntryError(fmt.Sprintf("entries[%d]", i), fmt.Sprintf("unexpected type %T", item))
		}
		records = append(records, rec)
	}

	entries, err := model.EntriesFromFields(records)
	if err != nil {
		return nil, err
	}
	return &model.FriendsPage{Entries: entries}, nil
}
