package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"drawboardgo/internal/config"
	"drawboardgo/internal/database/db_client"
	"drawboardgo/internal/http/http_server"
	"drawboardgo/internal/redis/redis_client"
	"drawboardgo/internal/services/board"
	"drawboardgo/internal/services/user"
	"drawboardgo/internal/syncdoc"
	"drawboardgo/internal/syncupdates"
	"drawboardgo/internal/ws"
)

var (
	Log, _ = zap.NewDevelopment()
)

func main() {
	defer Log.Sync()
	zap.ReplaceGlobals(Log)

	var err error
	var cfg *config.Config
	var redisClient *redis.Client

	// 1. Load configuration
	cfg, err = config.LoadConfig()
	if err != nil {
		Log.Fatal("Failed to load configuration", zap.Error(err))
	}
	Log.Debug("Configuration loaded successfully", zap.Any("config", cfg))

	// 2. Context with signal handling
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGINT, syscall.SIGTERM,
	)
	defer stop()

	// 3. Redis (sessions, relay fan-out, update journal)
	redisClient, err = redis_client.NewRedisClient(cfg.RedisHost, int(cfg.RedisPort))
	if err != nil {
		Log.Fatal("Failed to create Redis client", zap.Error(err))
	}
	defer redisClient.Close()
	Log.Debug("Redis client created successfully")

	// 4. Postgres db client + schema
	pgDb, err := db_client.Open(cfg.PostgresHost, cfg.PostgresPort, cfg.PostgresUser, cfg.PostgresPassword, cfg.PostgresDb)
	if err != nil {
		Log.Fatal("pg-open", zap.Error(err))
	}
	defer pgDb.Close()
	if err := db_client.Migrate(ctx, pgDb); err != nil {
		Log.Fatal("pg-migrate", zap.Error(err))
	}

	// 5. Services
	boardService := board.NewBoardService(pgDb)
	userService := user.NewUserService(pgDb, redisClient,
		time.Duration(cfg.SessionTTLMinutes)*time.Minute)

	// 6. Room registry + relay
	hub := ws.NewHub()
	wsSrv := ws.NewWsServer(hub, redisClient)

	// 7. Background: journal tail + room snapshot mirror
	syncupdates.Run(ctx, redisClient, pgDb)
	syncdoc.Run(ctx, hub, pgDb, time.Duration(cfg.SnapshotIntervalSec)*time.Second)

	// 8. HTTP + WS server
	httpServer := http_server.NewHttpServer(ctx, cfg.HttpServerPort, wsSrv, hub, boardService, userService)
	if err := httpServer.Start(); err != nil {
		Log.Fatal("Failed to start HTTP server", zap.Error(err))
	}
}
