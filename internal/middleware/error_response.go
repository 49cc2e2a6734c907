package middleware

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/hitoshi/ljfeed/internal/model"
)

// ErrorResponseBody は監視用エンドポイントのエラーレスポンス。
// model.APIErrorのうち利用者向けの項目だけを返し、原因エラーは含めない。
type ErrorResponseBody struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Category string `json:"category"`
	Action   string `json:"action"`
}

// StatusForCategory はエラーカテゴリに対応するHTTPステータスを返す。
//
//	request    → 400
//	input      → 422（取得したfriendspageが変換できない）
//	transport  → 502（LiveJournal側の失敗）
//	filesystem, config, system, その他 → 500
func StatusForCategory(category string) int {
	switch category {
	case model.CategoryRequest:
		return http.StatusBadRequest
	case model.CategoryInput:
		return http.StatusUnprocessableEntity
	case model.CategoryTransport:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// WriteErrorResponse はapiErrのカテゴリから決まるステータスでエラーレスポンスを書き込む。
func WriteErrorResponse(w http.ResponseWriter, apiErr *model.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(StatusForCategory(apiErr.Category))
	json.NewEncoder(w).Encode(ErrorResponseBody{
		Code:     apiErr.Code,
		Message:  apiErr.Message,
		Category: apiErr.Category,
		Action:   apiErr.Action,
	})
}

// WriteError はerrのチェーンからAPIErrorを探してレスポンスを書き込む。
// APIErrorを含まないエラーは内部エラーとして扱う。
func WriteError(w http.ResponseWriter, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		WriteErrorResponse(w, apiErr)
		return
	}
	WriteInternalServerError(w)
}

// WriteInternalServerError は内部エラーのレスポンスを書き込む。
// 詳細はログのみに記録する。
func WriteInternalServerError(w http.ResponseWriter) {
	WriteErrorResponse(w, &model.APIError{
		Code:     "INTERNAL_ERROR",
		Message:  "内部エラーが発生しました。",
		Category: model.CategorySystem,
		Action:   "ワーカーのログを確認してください。",
	})
}
