package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	lexiconHandler "github.com/librenews/weblog-bridge/internal/handler/lexicon"
	progressHandler "github.com/librenews/weblog-bridge/internal/handler/progress"
	"github.com/librenews/weblog-bridge/internal/handler/rpc"
	middlewarePkg "github.com/librenews/weblog-bridge/internal/middleware"
	"github.com/librenews/weblog-bridge/internal/service/progress"
	"github.com/librenews/weblog-bridge/pkg/utils"
)

// ServiceName 出现在健康检查响应中。
const ServiceName = "MetaWeblog-to-Bluesky Bridge"

// Deps 是路由依赖的服务集合。
type Deps struct {
	Calls   rpc.Caller
	Limits  lexiconHandler.LimitsSource
	Hub     *progress.Hub
	HomeURL string
}

// NewRouter wires HTTP routes to core services.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middlewarePkg.CORS)

	rpc.New(deps.Calls, deps.HomeURL).RegisterRoutes(r)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, map[string]string{
			"status":  "ok",
			"service": ServiceName,
		})
	})

	r.Route("/api", func(api chi.Router) {
		if deps.Limits != nil {
			lexiconHandler.New(deps.Limits).RegisterRoutes(api)
		}

		// 未启用进度推送时不注册相关路由
		if deps.Hub != nil {
			progressHandler.New(deps.Hub).RegisterRoutes(api)
		}
	})

	return r
}
