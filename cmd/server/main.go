package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"restaurant-orders/internal/config"
	"restaurant-orders/internal/connections/database"
	"restaurant-orders/internal/connections/rabbitmq"
	"restaurant-orders/internal/httpx"
	"restaurant-orders/internal/logger"
	menuhandlers "restaurant-orders/internal/menu/handlers"
	menurepo "restaurant-orders/internal/menu/repository"
	menuservice "restaurant-orders/internal/menu/service"
	"restaurant-orders/internal/metrics"
	"restaurant-orders/internal/notifier"
	orderhandlers "restaurant-orders/internal/order/handlers"
	orderrepo "restaurant-orders/internal/order/repository"
	orderservice "restaurant-orders/internal/order/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func main() {
	cfgPath := flag.String("config", "config.yml", "path to YAML config")
	flag.Parse()

	lg := logger.New("restaurant-orders")
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		lg.Error("config_load_failed", err, map[string]any{"path": *cfgPath})
		os.Exit(1)
	}

	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		lg.Error("db_connect_failed", err, nil)
		os.Exit(1)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool); err != nil {
		lg.Error("db_migrate_failed", err, nil)
		os.Exit(1)
	}
	lg.Info("db_connected", map[string]any{"host": cfg.Database.Host, "database": cfg.Database.Database})

	mq, err := rabbitmq.Dial(cfg.Rabbit)
	if err != nil {
		lg.Error("rabbitmq_connect_failed", err, nil)
		os.Exit(1)
	}
	defer mq.Close()
	if err := mq.DeclareTopology(); err != nil {
		lg.Error("rabbitmq_declare_failed", err, nil)
		os.Exit(1)
	}
	lg.Info("rabbitmq_connected", map[string]any{"host": cfg.Rabbit.Host})

	m := metrics.New()
	hub := notifier.NewHub(m, logger.New("notifier"))
	publisher := notifier.NewPublisher(mq)

	orders := orderrepo.New(pool)
	menu := menurepo.New(pool)
	orderSvc := orderservice.New(orders, menu, publisher, m, logger.New("order-service"))
	menuSvc := menuservice.New(menu, logger.New("menu-service"))

	consumer := notifier.NewConsumer(mq, hub, logger.New("notifier"))
	go func() {
		if err := consumer.Run(ctx); err != nil {
			lg.Error("notifier_consumer_stopped", err, nil)
			cancel()
		}
	}()

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(httpx.WithCaller)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/orders", orderhandlers.Routes(orderSvc, logger.New("order-handler")))
		r.Mount("/menu", menuhandlers.Routes(menuSvc, logger.New("menu-handler")))
	})
	r.Get("/ws", hub.ServeWS)
	r.Handle("/metrics", metrics.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if err := pool.Ping(req.Context()); err != nil {
			httpx.Error(w, http.StatusServiceUnavailable, "database unreachable")
			return
		}
		if err := mq.Ping(); err != nil {
			httpx.Error(w, http.StatusServiceUnavailable, "broker unreachable")
			return
		}
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	srv := httpx.New(fmt.Sprintf(":%d", cfg.HTTP.Port), r)
	lg.Info("service_started", map[string]any{"port": cfg.HTTP.Port})
	if err := srv.Run(ctx); err != nil {
		lg.Error("server_failed", err, nil)
		os.Exit(1)
	}
	lg.Info("service_stopped", nil)
}
