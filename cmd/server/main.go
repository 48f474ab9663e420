package main // Entry point package

import (
    "context"
    "log"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/joho/godotenv"
    "github.com/labstack/echo/v4"

    "github.com/eventloop/capacity-engine/internal/clock"
    "github.com/eventloop/capacity-engine/internal/config"
    "github.com/eventloop/capacity-engine/internal/database"
    "github.com/eventloop/capacity-engine/internal/engine"
    "github.com/eventloop/capacity-engine/internal/handler"
    "github.com/eventloop/capacity-engine/internal/middleware"
    "github.com/eventloop/capacity-engine/internal/queue"
    "github.com/eventloop/capacity-engine/internal/repository"
    "github.com/eventloop/capacity-engine/internal/router"
)

func main() {
    // .env is optional; real deployments set the environment directly.
    _ = godotenv.Load()

    cfg := config.Load()

    db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
    if err != nil {
        log.Fatalf("database: %v", err)
    }
    defer func() { _ = db.Close() }()

    // Redis is optional: without it the rate limiter and response cache
    // are simply not installed.
    rdb := config.NewRedisClient()

    users := repository.NewUserRepo(db)
    events := repository.NewEventRepo(db)
    subs := repository.NewSubscriptionRepo(db)
    follows := repository.NewFollowRepo(db)
    organizers := repository.NewOrganizerRepo(db)

    holds := engine.NewHoldTable(time.Duration(cfg.HoldTTLMin) * time.Minute)
    reservations := engine.NewReservationManager(holds, events, clock.NewSystem(), time.Duration(cfg.CheckoutTimeoutSec)*time.Second)
    attendance := engine.NewAttendanceService(subs, events)
    following := engine.NewFollowService(follows, organizers)

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    reservations.StartSweeper(ctx, time.Duration(cfg.SweepIntervalSec)*time.Second)

    go func() {
        if err := queue.StartTicketConsumer(); err != nil {
            log.Printf("queue consumer stopped: %v", err)
        }
    }()

    e := echo.New()
    e.HideBanner = true

    var protected []echo.MiddlewareFunc
    var cache echo.MiddlewareFunc
    if rdb != nil {
        rl := config.LoadRateLimitConfig()
        if rl.Enabled {
            protected = append(protected, middleware.NewTokenBucket(rl, rdb))
        }
        cache = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
    }

    authHandler := handler.NewAuthHandler(users, cfg.JWTSecret, cfg.AccessTTLMin, cfg.BcryptCost)
    ticketHandler := handler.NewTicketHandler(reservations)
    subHandler := handler.NewSubscriptionHandler(attendance)
    followHandler := handler.NewFollowHandler(following)

    router.RegisterRoutes(e)
    router.RegisterAuth(e, authHandler)
    router.RegisterPublic(e, ticketHandler, cache)
    router.RegisterTickets(e, ticketHandler, cfg.JWTSecret, protected...)
    router.RegisterSubscriptions(e, subHandler, cfg.JWTSecret, protected...)
    router.RegisterFollows(e, followHandler, cfg.JWTSecret, protected...)

    addr := ":" + cfg.Port
    log.Printf("listening on %s (env=%s)", addr, cfg.Env)

    go func() {
        if err := e.Start(addr); err != nil {
            log.Printf("server stopped: %v", err)
            stop()
        }
    }()

    <-ctx.Done()

    shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
    defer cancel()
    if err := e.Shutdown(shutdownCtx); err != nil {
        log.Printf("shutdown: %v", err)
    }
}
