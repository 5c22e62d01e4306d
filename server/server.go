package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cliptone/config"
	"cliptone/core/audio"
	"cliptone/core/extract"
	"cliptone/core/job"
	"cliptone/core/progress"
	"cliptone/core/token"
	"cliptone/core/workspace"
	"cliptone/logger"

	"github.com/gorilla/mux"
)

// Start initializes and starts the HTTP server.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogFile,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
		Compress:   true,
	})

	if cfg.SecretGenerated {
		logger.Warn("APP_SECRET not set; using a random development secret. " +
			"Capability tokens will not verify across restarts. Do not run like this in production.")
	}

	workspaces, err := workspace.NewStore(cfg.WorkDir, cfg.SessionTTL, cfg.SweepInterval)
	if err != nil {
		logger.Fatal("failed to initialize workspace store", logger.ErrorField(err))
	}

	var progressStore progress.Store
	switch cfg.ProgressBackend {
	case "redis":
		redisStore, err := progress.NewRedisStore(
			cfg.RedisHost+":"+cfg.RedisPort,
			cfg.RedisPassword,
			cfg.RedisDB,
			cfg.SessionTTL,
		)
		if err != nil {
			logger.Fatal("failed to connect progress store to Redis", logger.ErrorField(err))
		}
		defer redisStore.Close()
		progressStore = redisStore
		logger.Info("using Redis progress backend",
			logger.String("addr", cfg.RedisHost+":"+cfg.RedisPort))
	default:
		progressStore = progress.NewMemoryStore()
	}

	cookiesFile := ""
	if cfg.YoutubeCookies != "" {
		cookiesFile, err = extract.WriteCookies(os.TempDir(), cfg.YoutubeCookies)
		if err != nil {
			logger.Fatal("failed to write cookies file", logger.ErrorField(err))
		}
	}

	extractor := extract.NewYtDlp(cfg.YtdlpPath, extract.DefaultProfiles, cookiesFile, cfg.MaxUploadSize)
	transcoder := audio.NewFFmpegProcessor(cfg.FFmpegPath, cfg.FFprobePath)
	tokens := token.NewAuthority(cfg.AppSecret)

	runner := &job.Runner{
		Workspaces: workspaces,
		Progress:   progressStore,
		Extractor:  extractor,
		Converter:  transcoder,
	}

	apiHandler := NewAPIHandler(cfg, workspaces, progressStore, tokens, runner, extractor, transcoder)

	router := mux.NewRouter()
	router.Use(requestLogMiddleware)

	router.HandleFunc("/", apiHandler.IndexHandler).Methods(http.MethodGet)
	router.HandleFunc("/youtube", apiHandler.YouTubePageHandler).Methods(http.MethodGet)
	router.HandleFunc("/upload", apiHandler.UploadPageHandler).Methods(http.MethodGet)

	router.HandleFunc("/prepare", apiHandler.PrepareHandler).Methods(http.MethodPost)
	router.HandleFunc("/upload", apiHandler.UploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/progress/{sid}", apiHandler.ProgressStreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/ws/progress/{sid}", apiHandler.WebSocketProgressHandler).Methods(http.MethodGet)
	router.HandleFunc("/editor/{sid}", apiHandler.EditorHandler).Methods(http.MethodGet)
	router.HandleFunc("/audio/{sid}", apiHandler.AudioStreamHandler).Methods(http.MethodGet)
	router.HandleFunc("/trim", apiHandler.TrimHandler).Methods(http.MethodPost)
	router.HandleFunc("/cancel", apiHandler.CancelHandler).Methods(http.MethodPost)
	router.HandleFunc("/download", apiHandler.DownloadHandler).Methods(http.MethodPost)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
		// No ReadTimeout/WriteTimeout: uploads run up to MaxUploadSize and
		// the progress streams stay open for minutes. The stream enforces
		// its own wall-clock ceiling.
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown failed", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// requestLogMiddleware logs every request with its handling time.
func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Debug("request handled",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Duration("elapsed", time.Since(start)))
	})
}
