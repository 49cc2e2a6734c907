// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// CLIやログに出力する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // Category*定数のいずれか
	Action   string // 利用者向け対処方法
	Err      error  // 原因となったエラー（任意）
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap は原因エラーを返す。
func (e *APIError) Unwrap() error {
	return e.Err
}

// 定義済みエラーコード
const (
	ErrCodeMalformedEntry       = "MALFORMED_ENTRY"
	ErrCodeEmptyEntryCollection = "EMPTY_ENTRY_COLLECTION"
	ErrCodeFilesystemFailure    = "FILESYSTEM_FAILURE"
	ErrCodeTransportFailure     = "TRANSPORT_FAILURE"
	ErrCodeInvalidConfig        = "INVALID_CONFIG"
	ErrCodeInvalidRequest       = "INVALID_REQUEST"
)

// エラーカテゴリ。監視用HTTPエンドポイントではステータスコードの決定に使う。
const (
	CategoryInput      = "input"
	CategoryFilesystem = "filesystem"
	CategoryTransport  = "transport"
	CategoryConfig     = "config"
	CategoryRequest    = "request"
	CategorySystem     = "system"
)

// HasCode はエラーチェーン中に指定コードのAPIErrorが含まれるかを判定する。
// errors.Joinで結合されたエラーも探索する。
func HasCode(err error, code string) bool {
	if err == nil {
		return false
	}
	if apiErr, ok := err.(*APIError); ok && apiErr.Code == code {
		return true
	}
	switch x := err.(type) {
	case interface{ Unwrap() error }:
		return HasCode(x.Unwrap(), code)
	case interface{ Unwrap() []error }:
		for _, e := range x.Unwrap() {
			if HasCode(e, code) {
				return true
			}
		}
	}
	return false
}

// NewMalformedEntryError は記事データの欠落・型不一致エラーを生成する。
func NewMalformedEntryError(field, reason string) *APIError {
	return &APIError{
		Code:     ErrCodeMalformedEntry,
		Message:  fmt.Sprintf("記事データが不正です: %s (%s)", field, reason),
		Category: CategoryInput,
		Action:   "取得元のfriendspageデータを確認してください。",
	}
}

// NewEmptyEntryCollectionError は記事が0件の場合のエラーを生成する。
func NewEmptyEntryCollectionError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyEntryCollection,
		Message:  "記事が1件もないためフィードを生成できません。",
		Category: CategoryInput,
		Action:   "friendspageに記事が存在するか確認してください。",
	}
}

// NewFilesystemFailureError はファイル書き込み失敗エラーを生成する。
func NewFilesystemFailureError(path string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeFilesystemFailure,
		Message:  fmt.Sprintf("フィードファイルの書き込みに失敗しました: %s", path),
		Category: CategoryFilesystem,
		Action:   "出力先ディレクトリの権限と空き容量を確認してください。",
		Err:      err,
	}
}

// NewTransportFailureError はfriendspage取得失敗エラーを生成する。
func NewTransportFailureError(reason string, err error) *APIError {
	return &APIError{
		Code:     ErrCodeTransportFailure,
		Message:  fmt.Sprintf("friendspageの取得に失敗しました: %s", reason),
		Category: CategoryTransport,
		Action:   "ユーザー名・パスワードとネットワーク接続を確認し、しばらく待ってから再度お試しください。",
		Err:      err,
	}
}

// NewInvalidConfigError は設定不備エラーを生成する。
func NewInvalidConfigError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidConfig,
		Message:  fmt.Sprintf("設定が不正です: %s", reason),
		Category: CategoryConfig,
		Action:   "環境変数・設定ファイル・コマンドライン引数を確認してください。",
	}
}

// NewInvalidRequestError は監視用エンドポイントへの不正なリクエストのエラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: CategoryRequest,
		Action:   "クエリパラメータを確認してください。",
	}
}
