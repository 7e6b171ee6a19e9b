package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"

	"lise-messenger/config"
	"lise-messenger/controller"
	"lise-messenger/database"
	"lise-messenger/event"
	"lise-messenger/event/listener"
	"lise-messenger/logger"
	"lise-messenger/messenger"
	"lise-messenger/realtime"
	"lise-messenger/router"
	"lise-messenger/socketio"
	"lise-messenger/utils"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.Development())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rest := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		StrictRouting:         true,
		AppName:               "messenger-service",
	})

	rest.Use(cors.New())

	redisClients, err := database.RedisConnect(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("redis.connect_failed")
	}
	db, err := database.PostgresConnect(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres.connect_failed")
	}

	hub := realtime.NewHub(log)
	opts := []messenger.Option{}
	if client, ok := redisClients[database.RedisRealtime]; ok {
		relay := realtime.NewRedisRelay(client, realtime.DefaultRelayChannel, hub, log)
		go func() {
			if err := relay.Run(ctx); err != nil {
				log.Error().Err(err).Msg("realtime.relay_stopped")
			}
		}()
		opts = append(opts, messenger.WithPublisher(relay))
	}

	var bus *event.Bus
	if cfg.RabbitMQEnabled {
		bus, err = event.Connect(cfg, []string{
			// Connect to queues
			cfg.EventInbound,
			cfg.EventTarget,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("rabbitmq.connect_failed")
		}
		opts = append(opts, messenger.WithEmitter(bus))
	}

	svc := messenger.NewService(db, hub, log, opts...)

	if bus != nil {
		// Run the back-office listener and subscribe it to the inbound queue
		api := listener.NewAPI(svc, log)
		go api.Run(ctx)

		if err := bus.Subscribe([]event.Listener{api.Listener(cfg.EventInbound)}); err != nil {
			log.Fatal().Err(err).Msg("rabbitmq.subscribe_failed")
		}

		// Replay journaled events when EVENT_MODE asks for it
		if err := bus.Replay(); err != nil {
			log.Error().Err(err).Msg("event.replay_failed")
		}
	}

	enforcer, err := database.Casbin(db, cfg.RBACModelPath)
	if err != nil {
		log.Fatal().Err(err).Msg("casbin.init_failed")
	}

	tokens := utils.TokenConfig{
		AccessKey:     cfg.JWTAccessKey,
		AccessExpire:  time.Duration(cfg.JWTAccessExpire) * time.Minute,
		RefreshKey:    cfg.JWTRefreshKey,
		RefreshExpire: time.Duration(cfg.JWTRefreshExpire) * time.Minute,
	}

	tokenClient, ok := redisClients[database.RedisTokens]
	if !ok {
		log.Fatal().Int("db", database.RedisTokens).Msg("redis.token_db_missing")
	}

	socket := socketio.Init(rest, socketio.Options{
		Redis:     redisClients[database.RedisSocketIO],
		AccessKey: cfg.JWTAccessKey,
		Debug:     cfg.Development(),
	})

	router.Rest(rest, router.Handlers{
		Auth:      controller.NewAuth(db, database.NewTokenStore(tokenClient), enforcer, tokens, cfg.OtpIssuer, log),
		Messenger: controller.NewMessenger(svc),
		Profiles:  controller.NewProfiles(svc),
		Health:    controller.NewHealth(func() error { return database.Ping(db) }),
		AccessKey: cfg.JWTAccessKey,
		Enforcer:  enforcer,
	})
	router.Socket(socket, svc, log)

	go func() {
		if err := rest.Listen(fmt.Sprintf(":%s", cfg.ServerPort)); err != nil {
			log.Error().Err(err).Msg("http.listen_failed")
			cancel()
		}
	}()
	log.Info().Str("port", cfg.ServerPort).Msg("http.listening")

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	select {
	case s := <-signals:
		log.Info().Str("signal", s.String()).Msg("shutdown")
	case <-ctx.Done():
	}

	if err := rest.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Error().Err(err).Msg("http.shutdown_failed")
	}
	socket.Close(nil)
	if bus != nil {
		if err := bus.Close(); err != nil {
			log.Error().Err(err).Msg("rabbitmq.close_failed")
		}
	}
	cancel()
	for _, client := range redisClients {
		_ = client.Close()
	}
	os.Exit(0)
}
