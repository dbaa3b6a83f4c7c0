package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bjpl/describe-it-sub019/middleware/ratelimit"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/application"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/domain"
	"github.com/bjpl/describe-it-sub019/middleware/ratelimit/infra"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	// Exemplo: o middleware direto no webserver (sem proxy), uma classe por rota
	store := infra.NewLocalStore()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	store.StartJanitor(ctx)

	addr := ":8081"
	if v := os.Getenv("LISTEN_ADDR"); v != "" {
		addr = v
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           newRouter(store, application.NewRegistry(domain.DefaultPolicySet()), logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       90 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("example server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}

func newRouter(store domain.CounterStore, reg *application.Registry, logger *slog.Logger) http.Handler {
	limit := func(class domain.ClassKey) func(http.Handler) http.Handler {
		return ratelimit.Middleware(ratelimit.Options{
			Store:    store,
			Registry: reg,
			Class:    class,
			Logger:   logger,
		})
	}

	r := chi.NewRouter()
	r.Use(ratelimit.ConcurrencyMiddleware(ratelimit.ConcurrencyOptions{Max: 50}))

	r.With(limit(domain.ClassDescription)).Post("/api/descriptions/generate", ok("description"))
	r.With(limit(domain.ClassVocabulary)).Post("/api/vocabulary/save", ok("vocabulary"))
	r.With(limit(domain.ClassAuth)).Post("/api/auth/login", ok("auth"))
	r.With(limit(domain.ClassGeneral)).Get("/api/*", ok("general"))

	r.Mount("/admin/ratelimit", ratelimit.AdminHandler(application.AdminService{Registry: reg, Store: store}, logger))
	return r
}

func ok(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(name + " ok\n"))
	}
}
