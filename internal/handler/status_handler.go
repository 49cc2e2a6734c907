package handler

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/hitoshi/ljfeed/internal/middleware"
	"github.com/hitoshi/ljfeed/internal/model"
)

// TargetStatus は1つの出力ファイルの状態。
type TargetStatus struct {
	Variant  string     `json:"variant"`
	Path     string     `json:"path"`
	Exists   bool       `json:"exists"`
	Size     int64      `json:"size,omitempty"`
	Modified *time.Time `json:"modified,omitempty"`
}

// StatusResponse はGET /statusのレスポンス。
type StatusResponse struct {
	Targets []TargetStatus `json:"targets"`
}

// StatusHandler は出力ファイルの状態を返すハンドラー。
type StatusHandler struct {
	targets []model.Target
	logger  *slog.Logger
}

// NewStatusHandler はStatusHandlerの新しいインスタンスを生成する。
func NewStatusHandler(targets []model.Target, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{targets: targets, logger: logger}
}

// GetStatus は設定された各出力ファイルの存在・サイズ・更新時刻を返す。
// まだ生成されていないファイルはexists=falseとなる。
// クエリ ?variant=public のように種別を指定すると、その種別のターゲットだけを返す。
func (h *StatusHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	targets := h.targets
	if q := r.URL.Query().Get("variant"); q != "" {
		v, err := model.ParseVariant(q)
		if err != nil {
			middleware.WriteErrorResponse(w, model.NewInvalidRequestError(err.Error()))
			return
		}
		targets = filterTargets(targets, v)
	}

	resp := StatusResponse{Targets: make([]TargetStatus, 0, len(targets))}

	for _, t := range targets {
		st := TargetStatus{Variant: string(t.Variant), Path: t.Path}

		info, err := os.Stat(t.Path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			h.logger.Error("出力ファイルの状態取得に失敗しました",
				slog.String("path", t.Path),
				slog.String("error", err.Error()),
			)
			middleware.WriteError(w, model.NewFilesystemFailureError(t.Path, err))
			return
		default:
			modified := info.ModTime().UTC()
			st.Exists = true
			st.Size = info.Size()
			st.Modified = &modified
		}

		resp.Targets = append(resp.Targets, st)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(resp)
}

func filterTargets(targets []model.Target, v model.Variant) []model.Target {
	out := make([]model.Target, 0, len(targets))
	for _, t := range targets {
		if t.Variant == v {
			out = append(out, t)
		}
	}
	return out
}
