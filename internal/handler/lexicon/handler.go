package lexicon

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/librenews/weblog-bridge/internal/model/lexicon"
	"github.com/librenews/weblog-bridge/internal/service/compose"
	"github.com/librenews/weblog-bridge/pkg/utils"
)

// LimitsSource 提供当前生效的拆分规则
type LimitsSource interface {
	Limits() compose.Options
}

// Handler lexicon 信息的HTTP处理器
type Handler struct {
	limits LimitsSource
}

// New 创建lexicon处理器
func New(limits LimitsSource) *Handler {
	return &Handler{limits: limits}
}

// RegisterRoutes 注册lexicon相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/lexicons", h.handleListLexicons)
}

// handleListLexicons 列出支持的 schema 及大小限制
func (h *Handler) handleListLexicons(w http.ResponseWriter, r *http.Request) {
	opts := h.limits.Limits()
	utils.RespondJSON(w, http.StatusOK, lexicon.Describe(lexicon.Limits{
		MaxSinglePost: opts.ThreadLimit,
		MaxRecord:     opts.RecordLimit,
		MaxLongForm:   opts.LongFormLimit,
		ThreadSupport: true,
		AutoThreading: opts.AutoThread,
	}))
}
