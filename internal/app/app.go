// Package app wires configuration, storage, services and HTTP routes into a
// runnable server.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/pliu/chatroom/internal/config"
	"github.com/pliu/chatroom/internal/filestore"
	"github.com/pliu/chatroom/internal/handlers"
	"github.com/pliu/chatroom/internal/httpx"
	"github.com/pliu/chatroom/internal/logging"
	"github.com/pliu/chatroom/internal/middleware"
	"github.com/pliu/chatroom/internal/store"
	"github.com/pliu/chatroom/internal/store/cache"
	"github.com/pliu/chatroom/internal/store/sqlstore"
	"github.com/pliu/chatroom/internal/users"
	"github.com/pliu/chatroom/internal/ws"
	"golang.org/x/time/rate"
)

type App struct {
	cfg    *config.Config
	logger logging.Logger

	store store.Store
	files filestore.FileStore
	users *users.Service
	hub   *ws.Hub

	// mediaRoot is set when files live on local disk and are served by us.
	mediaRoot string
	closers   []func() error
}

// New opens the database (running migrations), the optional Redis cache and
// the configured file store.
func New(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	a := &App{cfg: cfg, logger: logger}

	db, err := sqlstore.Open(ctx, cfg.DBDriver, cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a.closers = append(a.closers, db.Close)
	a.store = db

	if cfg.RedisDSN != "" {
		rdb, err := cache.NewRedisClient(ctx, cfg.RedisDSN)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, rdb.Close)
		a.store = cache.NewUserCache(db, rdb, cfg.UserCacheTTL, logger)
		logger.Info(ctx, "user cache enabled", "ttl", cfg.UserCacheTTL.String())
	}

	switch cfg.MediaBackend {
	case "s3":
		s3cfg := filestore.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Endpoint:        cfg.S3BaseEndpoint,
			AccessKeyID:     cfg.S3AccessKey,
			SecretAccessKey: cfg.S3SecretKey,
			PublicURL:       cfg.S3PublicURL,
		}
		client, err := filestore.NewS3Client(ctx, s3cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.files = filestore.NewS3Store(client, s3cfg)
	default:
		local, err := filestore.NewLocalStore(cfg.MediaRoot, cfg.MediaURL)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.files = local
		a.mediaRoot = local.Root()
	}

	a.users = users.NewService(a.store, a.files, logger, users.Options{
		SecretKey:          []byte(cfg.SecretKey),
		TokenTTL:           cfg.TokenTTL,
		AvatarMaxDimension: cfg.AvatarMaxDimension,
	})
	a.hub = ws.NewHub(logger)
	return a, nil
}

// Users exposes the account service for command-line tools.
func (a *App) Users() *users.Service { return a.users }

// Handler builds the full HTTP handler.
func (a *App) Handler() http.Handler {
	urls := handlers.URLBuilder{Files: a.files, BaseURL: a.cfg.PublicBaseURL}
	authHandler := &handlers.AuthHandler{Users: a.users, URLs: urls, Logger: a.logger}
	userHandler := &handlers.UserHandler{Users: a.users, URLs: urls, MaxUploadBytes: a.cfg.MaxUploadBytes, Presence: a.hub, Logger: a.logger}
	chatHandler := &handlers.ChatHandler{Store: a.store, Hub: a.hub, Logger: a.logger}
	messageHandler := &handlers.MessageHandler{Store: a.store, Hub: a.hub, Logger: a.logger}
	imageHandler := &handlers.ImageHandler{Store: a.store, Files: a.files, URLs: urls, MaxUploadBytes: a.cfg.MaxUploadBytes, Logger: a.logger}

	r := mux.NewRouter()

	var register, login http.Handler = http.HandlerFunc(authHandler.Register), http.HandlerFunc(authHandler.Login)
	if a.cfg.LoginRateLimit > 0 {
		limit := middleware.RateLimit(middleware.NewLimiterStore(rate.Limit(a.cfg.LoginRateLimit), a.cfg.LoginBurst, 10*time.Minute))
		register, login = limit(register), limit(login)
	}
	r.Handle("/register", register).Methods(http.MethodPost)
	r.Handle("/login", login).Methods(http.MethodPost)

	r.HandleFunc("/healthz", a.health).Methods(http.MethodGet)
	r.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(a.hub, a.users, w, r)
	})

	api := r.NewRoute().Subrouter()
	api.Use(middleware.Auth(a.users))

	api.HandleFunc("/users", userHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", userHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/users/{id}", userHandler.Update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/users/{id}", userHandler.Delete).Methods(http.MethodDelete)
	api.HandleFunc("/users/{id}/upload_avatar", userHandler.UploadAvatar).Methods(http.MethodPost)

	api.HandleFunc("/chats", chatHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/chats", chatHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/chats/{id}", chatHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/chats/{id}", chatHandler.Update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/chats/{id}", chatHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/messages", messageHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/messages", messageHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/messages/{id}", messageHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}", messageHandler.Update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/messages/{id}", messageHandler.Delete).Methods(http.MethodDelete)

	api.HandleFunc("/images", imageHandler.List).Methods(http.MethodGet)
	api.HandleFunc("/images", imageHandler.Create).Methods(http.MethodPost)
	api.HandleFunc("/images/{id}", imageHandler.Get).Methods(http.MethodGet)
	api.HandleFunc("/images/{id}", imageHandler.Update).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/images/{id}", imageHandler.Delete).Methods(http.MethodDelete)

	if a.mediaRoot != "" && strings.HasPrefix(a.cfg.MediaURL, "/") {
		prefix := "/" + strings.Trim(a.cfg.MediaURL, "/") + "/"
		r.PathPrefix(prefix).Handler(http.StripPrefix(prefix, http.FileServer(http.Dir(a.mediaRoot)))).
			Methods(http.MethodGet, http.MethodHead)
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusNotFound, "Not found.")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httpx.Error(w, http.StatusMethodNotAllowed, fmt.Sprintf("Method %q not allowed.", r.Method))
	})

	var h http.Handler = middleware.Logging(a.logger)(r)
	if len(a.cfg.CORSOrigins) > 0 {
		h = middleware.CORS(a.cfg.CORSOrigins)(h)
	}
	return middleware.TrimSlash(h)
}

func (a *App) health(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		a.logger.Error(r.Context(), "health check failed", "error", err)
		httpx.Error(w, http.StatusServiceUnavailable, "unavailable")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (a *App) Run(ctx context.Context) error {
	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go a.hub.Run(hubCtx)

	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "starting server", "addr", a.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	a.logger.Info(ctx, "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	stopHub()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// Close releases the database and cache connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}
