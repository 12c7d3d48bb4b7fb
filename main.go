package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"golang.org/x/sync/errgroup"

	"adstudio-server/modules/account"
	"adstudio-server/modules/common/config"
	"adstudio-server/modules/common/database"
	"adstudio-server/modules/common/gemini"
	"adstudio-server/modules/common/redis"
	"adstudio-server/modules/common/storage"
	"adstudio-server/modules/export"
	"adstudio-server/modules/generation"
	"adstudio-server/modules/studio"
)

const cleanupInterval = 5 * time.Minute

func main() {
	// 환경변수 로드
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("❌ Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpClient := &http.Client{Timeout: 5 * time.Minute}

	// 생성 클라이언트
	genaiClient, err := gemini.NewClient(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("❌ Failed to create Gemini client: %v", err)
	}
	generator := generation.NewService(generation.NewGenaiBackend(genaiClient), generation.Options{
		ImageModel:     cfg.ImageModel,
		CompositeModel: cfg.CompositeModel,
		VideoModel:     cfg.VideoModel,
		APIKey:         cfg.GeminiAPIKey,
		HTTPClient:     httpClient,
	})

	// 비디오 리소스 핸들
	registry := export.NewRegistry()

	// 생성 이력 (Supabase 설정 시)
	var (
		recorder studio.Recorder
		history  studio.History
	)
	if db := database.NewClient(cfg); db != nil {
		recorder, history = db, db
	}

	// 공유 대상
	sharer, err := newSharer(ctx, cfg, httpClient)
	if err != nil {
		log.Fatalf("❌ Failed to set up share backend: %v", err)
	}

	// 계정 저장소
	store, err := newAccountStore(ctx, cfg)
	if err != nil {
		log.Fatalf("❌ Failed to set up account store: %v", err)
	}
	directory := account.NewDirectory(store)
	if err := directory.Bootstrap(ctx); err != nil {
		log.Printf("⚠️  %v", err)
	}
	tokens := account.NewTokenService(cfg.JWTSecret, time.Duration(cfg.JWTExpireHours)*time.Hour)
	accountHandler := account.NewHandler(account.NewAuth(directory, tokens), account.NewAdmin(directory))

	// 스튜디오 세션
	manager := studio.NewManager(generator, registry, studio.ManagerConfig{
		PollInterval: cfg.VideoPollInterval,
		SessionTTL:   cfg.SessionTTL,
		Recorder:     recorder,
	})
	studioHandler := studio.NewHandler(manager, registry, studio.HandlerOptions{
		Sharer:      sharer,
		History:     history,
		CurrentUser: accountHandler.CurrentUser,
	})

	// 라우터 설정
	r := mux.NewRouter()

	// CORS 미들웨어 적용
	r.Use(enableCORS)

	// 라우트 설정
	r.HandleFunc("/", healthCheck).Methods("GET")
	r.HandleFunc("/health", healthCheck).Methods("GET")
	r.HandleFunc("/ws", manager.HandleWebSocket)
	r.HandleFunc("/session/{sessionId}", getSessionInfo(manager)).Methods("GET")
	r.HandleFunc("/metrics", getMetrics(manager)).Methods("GET")
	r.Handle("/admin/cleanup", accountHandler.RequireAuth(accountHandler.RequireAdmin(forceCleanupSessions(manager)))).Methods("POST")
	r.Handle("/blob/{id}", registry).Methods("GET")

	studioHandler.RegisterRoutes(r)
	accountHandler.RegisterRoutes(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	log.Printf("🚀 Ad Studio Server starting on port %s", cfg.Port)
	log.Printf("📡 WebSocket endpoint: ws://localhost:%s/ws?session=<id>", cfg.Port)
	log.Printf("❤️  Health check: http://localhost:%s/health", cfg.Port)
	log.Printf("📊 Metrics: http://localhost:%s/metrics", cfg.Port)
	log.Printf("🧹 Admin cleanup: http://localhost:%s/admin/cleanup", cfg.Port)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return manager.RunCleanup(gctx, cleanupInterval)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Server error: %v", err)
	}

	manager.CloseAll()
	log.Println("👋 Server stopped")
}

// newSharer - SHARE_BACKEND에 따른 공유 대상 (none이면 nil)
func newSharer(ctx context.Context, cfg *config.Config, httpClient *http.Client) (export.Sharer, error) {
	switch cfg.ShareBackend {
	case "supabase":
		return export.NewPublishSharer(storage.NewSupabasePublisher(cfg, httpClient)), nil
	case "s3":
		publisher, err := storage.NewS3Publisher(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return export.NewPublishSharer(publisher), nil
	default:
		log.Println("⚠️  Share backend disabled")
		return nil, nil
	}
}

// newAccountStore - ACCOUNT_STORE에 따른 계정 저장소
func newAccountStore(ctx context.Context, cfg *config.Config) (account.BlobStore, error) {
	if cfg.AccountStore == "redis" {
		rdb, err := redis.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return account.NewRedisStore(rdb, "adstudio:"), nil
	}
	return account.NewFileStore(cfg.AccountStoreDir)
}

// CORS 미들웨어
func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Expose-Headers", "Content-Disposition")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// 헬스 체크 엔드포인트
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "adstudio-server",
	})
}

// 세션 정보 조회 엔드포인트
func getSessionInfo(manager *studio.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		session, err := manager.Get(mux.Vars(r)["sessionId"])
		if err != nil {
			w.WriteHeader(http.StatusNotFound)
			json.NewEncoder(w).Encode(map[string]string{
				"error": "Session not found",
			})
			return
		}

		json.NewEncoder(w).Encode(session.Info())
	}
}

// 서버 메트릭 조회 엔드포인트
func getMetrics(manager *studio.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(manager.Metrics())
	}
}

// 만료 세션 강제 정리 (관리자용)
func forceCleanupSessions(manager *studio.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cleaned := manager.CleanupExpiredSessions()

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "Cleanup completed",
			"cleaned": cleaned,
		})
	}
}
