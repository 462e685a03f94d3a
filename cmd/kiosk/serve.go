package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"

	"kiosk/agent/internal/answer"
	"kiosk/agent/internal/api"
	"kiosk/agent/internal/catalog"
	"kiosk/agent/internal/frontend"
	"kiosk/agent/internal/heygen"
	"kiosk/agent/internal/inputrpc"
	"kiosk/agent/internal/logging"
	"kiosk/agent/internal/orchestrator"
	"kiosk/agent/internal/store"
	"kiosk/agent/internal/watchdog"
)

// avatarIdleTimeout is how long HeyGen keeps a silent stream open.
const avatarIdleTimeout = 300 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var origins []string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, kiosk websocket and gRPC input service",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx, origins)
		},
	}
	cmd.Flags().StringSliceVar(&origins, "origin", nil, "extra websocket origin patterns allowed to connect")
	return cmd
}

func (a *app) serve(ctx context.Context, origins []string) error {
	log := a.log
	cfg := a.cfg

	cat, err := a.loadCatalog()
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	holder := catalog.NewHolder(cat)
	if cfg.Kiosk.WatchCatalog && cfg.Kiosk.CatalogPath != "" {
		if err := holder.Watch(ctx, cfg.Kiosk.CatalogPath, log.Named("catalog")); err != nil {
			log.Warn("catalog watch disabled", zap.Error(err))
		}
	}

	st := store.New()
	mgr := orchestrator.NewManager(holder, orchestrator.ManagerConfig{
		Watchdog: watchdog.Config{
			IdleTimeout:   cfg.IdleTimeout(),
			PromptTimeout: cfg.PromptTimeout(),
		},
		MediaFallback: cfg.MediaFallback(),
		Logger:        log.Named("orch"),
		EventLog:      st,
	})
	defer mgr.CloseAll()

	reg := frontend.NewRegistry()
	hg := heygen.NewClient(cfg.HeyGen.APIKey, cfg.HeyGen.BaseURL)
	prompt := cfg.OpenAI.SystemPrompt
	if prompt == "" {
		prompt = answer.KnowledgePrompt(cat)
	}
	var ans answer.Answerer
	if cfg.OpenAI.APIKey != "" {
		ans = answer.NewOpenAI(cfg.OpenAI.APIKey, cfg.OpenAI.Model, prompt)
	}
	var speech heygen.Client
	if cfg.HeyGen.APIKey != "" {
		speech = hg
	}
	wire := newWiring(reg, speech, ans, heygen.SessionOptions{
		AvatarName:    cfg.HeyGen.AvatarName,
		Quality:       cfg.HeyGen.Quality,
		Language:      cfg.HeyGen.Language,
		KnowledgeBase: prompt,
		IdleTimeout:   avatarIdleTimeout,
	}, log.Named("wiring"))

	h := api.NewHandlers(cfg, st, mgr, wire, hg, log.Named("api"))
	wss := &frontend.Server{
		TokenSecret:     cfg.Kiosk.WSTokenSecret,
		TokenSkewSecs:   cfg.Kiosk.WSTokenSkewSecs,
		OriginPatterns:  origins,
		Store:           st,
		Sessions:        mgr,
		Reg:             reg,
		Log:             log.Named("ws"),
		OnAvatarSession: wire.AttachStream,
		OnStart:         h.StartSession,
	}
	if cfg.Kiosk.WSTokenSecret == "" {
		log.Warn("KIOSK_WS_TOKEN_SECRET not set; kiosk screens cannot connect")
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           logging.Middleware(log.Named("http"), api.NewRouter(h, http.HandlerFunc(wss.HandleKioskWS))),
		ReadHeaderTimeout: 5 * time.Second,
	}

	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return fmt.Errorf("grpc listen %s: %w", cfg.GRPC.Addr, err)
	}
	gs := grpc.NewServer()
	inputrpc.Register(gs, &inputrpc.Service{Sessions: mgr, Log: log.Named("rpc")})

	errc := make(chan error, 2)
	go func() {
		log.Info("grpc listening", zap.String("addr", cfg.GRPC.Addr))
		errc <- gs.Serve(lis)
	}()
	go func() {
		log.Info("server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
			return
		}
		errc <- nil
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received; stopping server")
	case err := <-errc:
		if err != nil {
			log.Error("server error", zap.Error(err))
		}
		gs.Stop()
		_ = srv.Close()
		return err
	}

	// Close sessions first so media closes still reach connected screens.
	mgr.CloseAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)
	gs.GracefulStop()
	return nil
}
