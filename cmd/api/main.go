package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cragline/backend/internal/config"
	"cragline/backend/internal/domain/activity"
	"cragline/backend/internal/domain/engagement"
	"cragline/backend/internal/domain/gym"
	"cragline/backend/internal/domain/messaging"
	"cragline/backend/internal/domain/notifications"
	"cragline/backend/internal/domain/pass"
	"cragline/backend/internal/domain/search"
	"cragline/backend/internal/domain/user"
	"cragline/backend/internal/firebase"
	"cragline/backend/internal/handlers"
	apihttp "cragline/backend/internal/http"
	"cragline/backend/internal/logger"

	"github.com/redis/go-redis/v9"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		logger.New(logger.Options{ServiceName: "cragline-api"}).Fatal(ctx, "config", err)
	}
	log := logger.New(logger.Options{
		ServiceName: "cragline-api",
		Level:       logger.ParseLevel(cfg.LogLevel),
		Format:      cfg.LogFormat,
	})

	clients, err := firebase.NewClients(ctx, cfg)
	if err != nil {
		log.Fatal(ctx, "firebase init failed", err)
	}
	defer clients.Close()
	fs := clients.Firestore

	// Services
	notificationsSvc := notifications.NewService(notifications.NewFirestoreRepo(fs), log)
	if clients.Messaging != nil {
		notificationsSvc.SetPusher(clients.Messaging)
	} else {
		log.Warn(ctx, "FCM unavailable, push disabled", nil)
	}

	userSvc := user.NewService(user.NewFirestoreRepo(fs), log)
	userSvc.SetAuthClient(clients.Auth)
	userSvc.SetNotifier(notificationsSvc)

	gymSvc := gym.NewService(gym.NewFirestoreRepo(fs))

	activitySvc := activity.NewService(activity.NewFirestoreRepo(fs), userSvc, gymSvc, log)
	activitySvc.SetNotifier(notificationsSvc)

	searchSvc := search.NewService(userSvc, activitySvc, cfg.SearchPoolSize, log)
	messagingSvc := messaging.NewService(messaging.NewFirestoreRepo(fs), userSvc, log)
	passSvc := pass.NewService(pass.NewFirestoreRepo(fs), log)

	likedSet, closeRedis := newLikedSet(ctx, cfg, log)
	defer closeRedis()

	router := apihttp.NewRouter(apihttp.RouterDeps{
		Cfg:           cfg,
		Log:           log,
		Verifier:      clients.Auth,
		Users:         userSvc,
		Gyms:          gymSvc,
		Activities:    activitySvc,
		Engagement:    engagement.NewFirestoreStore(fs),
		LikedSet:      likedSet,
		Notifications: notificationsSvc,
		Messaging:     messagingSvc,
		Search:        searchSvc,
		Passes:        passSvc,
		Uploads:       handlers.NewUploads(cfg, handlers.IAMSigner(clients.IAM), handlers.StorageStat(clients.Storage), log),
		Realtime:      handlers.NewRealtime(messagingSvc, notificationsSvc, cfg.AllowedOrigins, log),
		Claims:        handlers.NewClaims(clients.Auth, gymSvc, log),
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	// graceful shutdown
	go func() {
		log.Info(log.WithFields(ctx, map[string]any{"port": cfg.Port, "project": cfg.ProjectID}), "API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal(ctx, "listen failed", err)
		}
	}()

	stop := make(chan os.Signal, 2)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Info(ctx, "shutting down")
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Error(ctx, "shutdown", err)
	}
}

// newLikedSet uses Redis when REDIS_URL is set and reachable, otherwise a
// per-process set.
func newLikedSet(ctx context.Context, cfg config.Config, log *logger.Logger) (engagement.LikedSet, func()) {
	if cfg.RedisURL == "" {
		return engagement.NewMemoryLikedSet(), func() {}
	}
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Warn(ctx, "invalid REDIS_URL, using in-process liked set", err)
		return engagement.NewMemoryLikedSet(), func() {}
	}
	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		log.Warn(ctx, "redis unreachable, using in-process liked set", err)
		_ = rdb.Close()
		return engagement.NewMemoryLikedSet(), func() {}
	}
	log.Info(ctx, "liked set backed by redis")
	return engagement.NewRedisLikedSet(rdb), func() { _ = rdb.Close() }
}
