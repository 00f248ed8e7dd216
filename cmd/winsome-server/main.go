package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/princekumarofficial/winsome-service/internal/config"
	"github.com/princekumarofficial/winsome-service/internal/events"
	postshandlers "github.com/princekumarofficial/winsome-service/internal/http/handlers/posts"
	usershandlers "github.com/princekumarofficial/winsome-service/internal/http/handlers/users"
	wshandler "github.com/princekumarofficial/winsome-service/internal/http/handlers/websocket"
	"github.com/princekumarofficial/winsome-service/internal/http/middleware"
	"github.com/princekumarofficial/winsome-service/internal/reward"
	"github.com/princekumarofficial/winsome-service/internal/store/backup"
	"github.com/princekumarofficial/winsome-service/internal/store/content"
	"github.com/princekumarofficial/winsome-service/internal/store/social"
	"github.com/princekumarofficial/winsome-service/internal/websocket"
)

func main() {
	// load config
	cfg := config.MustLoad()

	// storage setup
	if err := os.MkdirAll(cfg.Storage.Dir, 0o755); err != nil {
		log.Fatal("Failed to create storage directory:", err)
	}

	socialStore, err := social.Open(
		backup.NewFile(filepath.Join(cfg.Storage.Dir, "users.json")),
		backup.NewFile(filepath.Join(cfg.Storage.Dir, "following.json")),
	)
	if err != nil {
		log.Fatal("Failed to open social store:", err)
	}

	contentStore, err := content.Open(
		backup.NewFile(filepath.Join(cfg.Storage.Dir, "posts.json")),
		backup.NewFile(filepath.Join(cfg.Storage.Dir, "engagement.json")),
		socialStore,
	)
	if err != nil {
		log.Fatal("Failed to open content store:", err)
	}
	slog.Info("Stores rehydrated from backup files", slog.String("dir", cfg.Storage.Dir))

	// redis setup for rate limiting
	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatal("Failed to connect to Redis:", err)
	}
	slog.Info("Connected to Redis")

	// notification fan-out
	hub := websocket.NewHub()
	go hub.Run()
	publisher := events.NewPublisher(hub)
	socialStore.SetNotifier(publisher)

	// background loops
	workerCtx, stopWorkers := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	backupWorker := backup.NewWorker(cfg.Backup.Interval, socialStore, contentStore)
	workers.Add(1)
	go func() {
		defer workers.Done()
		backupWorker.Start(workerCtx)
	}()

	rewardEngine := reward.New(contentStore, socialStore, publisher, cfg.Reward.Interval, cfg.Reward.AuthorShare)
	workers.Add(1)
	go func() {
		defer workers.Done()
		rewardEngine.Start(workerCtx)
	}()

	// setup server
	router := http.NewServeMux()

	auth := middleware.AuthMiddleware(cfg.JWTSecret)
	rateLimits := middleware.NewRateLimitConfig(redisClient)

	router.HandleFunc("POST /signup", usershandlers.SignUp(socialStore))
	router.HandleFunc("POST /login", usershandlers.Login(socialStore, cfg.JWTSecret, cfg.Multicast.Address))
	router.Handle("POST /logout", auth(usershandlers.Logout(socialStore)))
	router.Handle("GET /users", auth(usershandlers.ListUsers(socialStore)))
	router.Handle("POST /follow/{username}", auth(usershandlers.FollowUser(socialStore)))
	router.Handle("DELETE /follow/{username}", auth(usershandlers.UnfollowUser(socialStore)))
	router.Handle("GET /following", auth(usershandlers.Following(socialStore)))
	router.Handle("GET /followers", auth(usershandlers.Followers(socialStore)))
	router.Handle("GET /wallet", auth(usershandlers.Wallet(socialStore)))

	router.Handle("POST /posts", auth(rateLimits.RateLimitedHandler("posts", postshandlers.CreatePost(contentStore))))
	router.Handle("GET /feed", auth(postshandlers.Feed(contentStore)))
	router.Handle("GET /blog", auth(postshandlers.Blog(contentStore)))
	router.Handle("GET /blog/{username}", auth(postshandlers.Blog(contentStore)))
	router.Handle("GET /posts/{id}", auth(postshandlers.GetPost(contentStore)))
	router.Handle("DELETE /posts/{id}", auth(postshandlers.DeletePost(contentStore)))
	router.Handle("POST /posts/{id}/rewin", auth(postshandlers.Rewin(contentStore)))
	router.Handle("POST /posts/{id}/vote", auth(rateLimits.RateLimitedHandler("votes", postshandlers.Vote(contentStore))))
	router.Handle("POST /posts/{id}/comments", auth(rateLimits.RateLimitedHandler("comments", postshandlers.Comment(contentStore))))

	router.HandleFunc("GET /ws", wshandler.WebSocketHandler(hub, cfg.JWTSecret))

	server := http.Server{
		Addr:    cfg.HTTPServer.Address,
		Handler: router,
	}

	log.Println("server started on", cfg.HTTPServer.Address)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		err := server.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %s", err)
		}
	}()

	<-done

	slog.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("failed to gracefully shutdown server", slog.String("error", err.Error()))
	}

	// Stop the background loops; the backup worker runs a final flush
	// before returning.
	stopWorkers()
	workers.Wait()

	slog.Info("Server stopped")
}
