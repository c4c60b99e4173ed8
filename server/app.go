package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// App 组合根：持有唯一的 World 与 SyncHub，并挂载所有接入面
type App struct {
	Config  Config
	World   *World
	Hub     *SyncHub
	Handler http.Handler

	log *zap.SugaredLogger
}

// NewApp 创建世界（此时放置球）、同步中心与路由。须在开始监听前调用
func NewApp(cfg Config, log *zap.SugaredLogger, opts ...WorldOption) *App {
	cfg = cfg.Sanitize()
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	world := NewWorld(opts...)
	log.Infof("initial ball position: %d", world.BallPosition())

	a := &App{
		Config: cfg,
		World:  world,
		Hub:    NewSyncHub(world, log, &SyncMetrics{}),
		log:    log,
	}
	a.Handler = a.routes()
	return a
}

func (a *App) routes() http.Handler {
	policy := NewOriginPolicy(a.Config.AllowedOrigins)
	api := NewGameAPI(a.Hub, a.log)

	r := mux.NewRouter()
	r.HandleFunc("/api/game-state", api.GetGameState).Methods(http.MethodGet)
	r.HandleFunc("/api/update-game", api.UpdateGame).Methods(http.MethodPost)
	r.Handle("/ws", NewWSHandler(a.Hub, a.Config, policy, a.log))
	r.HandleFunc("/metrics", a.HandleMetrics).Methods(http.MethodGet)
	r.HandleFunc("/healthz", HandleHealthz).Methods(http.MethodGet)
	if a.Config.StaticDir != "" {
		// 前后端分离：将 / 映射到前端静态资源目录
		r.PathPrefix("/").Handler(http.FileServer(http.Dir(a.Config.StaticDir)))
	}
	return policy.CORS(r)
}

// Run 监听并服务，直到 ctx 取消后优雅退出
func (a *App) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.Config.Addr,
		Handler:           a.Handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Infof("gridball listening on %s", a.Config.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	a.log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.Config.ShutdownTimeout)
	defer cancel()
	// 先停止接入新请求；劫持后的 WebSocket 连接不受 Shutdown 管理，再由 Hub 主动关闭
	err := srv.Shutdown(shutdownCtx)
	a.Hub.Close()
	return err
}
