package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/librenews/weblog-bridge/internal/config"
	"github.com/librenews/weblog-bridge/internal/handler"
	"github.com/librenews/weblog-bridge/internal/service/atproto"
	"github.com/librenews/weblog-bridge/internal/service/compose"
	"github.com/librenews/weblog-bridge/internal/service/metaweblog"
	"github.com/librenews/weblog-bridge/internal/service/progress"
	"github.com/librenews/weblog-bridge/internal/service/publish"
	"github.com/librenews/weblog-bridge/internal/service/session"
)

func main() {
	var envFile string
	flagSet := pflag.NewFlagSet("weblog-bridge", pflag.ExitOnError)
	flagSet.StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")
	_ = flagSet.Parse(os.Args[1:])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load .env file
	if err := godotenv.Load(envFile); err != nil {
		log.Printf("warning: failed to load %s: %v", envFile, err)
		log.Println("continuing with system environment variables only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	client := atproto.NewClient(cfg.ATProto.Service, cfg.ATProto.Timeout)

	// Session cache: Redis when configured, otherwise in-process.
	var authenticator publish.Authenticator
	if cfg.Session.Enabled() {
		var cache session.Cache
		if cfg.Session.RedisURL != "" {
			redisCache, err := session.NewRedisCache(cfg.Session.RedisURL)
			if err != nil {
				log.Printf("warning: redis session cache unavailable: %v", err)
				log.Println("falling back to in-memory session cache")
				cache = session.NewMemoryCache()
			} else {
				defer redisCache.Close()
				log.Println("Redis session cache enabled")
				cache = redisCache
			}
		} else {
			cache = session.NewMemoryCache()
		}
		authenticator = session.NewAuthenticator(client, cache, cfg.Session.TTL)
	} else {
		log.Println("session cache disabled, authenticating on every call")
	}

	composer := compose.New(compose.Options{
		ThreadLimit:   cfg.Bridge.ThreadLimit,
		RecordLimit:   cfg.Bridge.RecordLimit,
		LongFormLimit: cfg.Bridge.LongFormLimit,
		AutoThread:    cfg.Bridge.AutoThread,
	})
	hub := progress.NewHub()
	publishSvc := publish.NewService(client, authenticator, composer, cfg.Bridge.ThreadPause, hub)

	dispatcher := metaweblog.New(publishSvc, metaweblog.Blog{
		Name:       cfg.Blog.Name,
		URL:        cfg.Blog.URL,
		ServiceURL: cfg.ATProto.Service,
	})

	router := handler.NewRouter(handler.Deps{
		Calls:   dispatcher,
		Limits:  publishSvc,
		Hub:     hub,
		HomeURL: cfg.Blog.URL,
	})

	startServer(ctx, cfg.Server, router)
}

func startServer(ctx context.Context, serverCfg config.ServerConfig, router http.Handler) {
	addr := serverCfg.Addr
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Printf("MetaWeblog -> Bluesky bridge listening on %s (endpoint /xmlrpc)", addr)
	if err := runServer(ctx, srv); err != nil {
		log.Fatalf("server error: %v", err)
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		// Long threads are still posting; give them time to finish.
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
