// README: Entry point; loads config, wires services, starts HTTP server and deadline watches.
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"kurye/internal/clock"
	"kurye/internal/config"
	httptransport "kurye/internal/http"
	"kurye/internal/infra"
	"kurye/internal/logger"
	"kurye/internal/maps"
	"kurye/internal/modules/area"
	"kurye/internal/modules/location"
	"kurye/internal/modules/order"
	"kurye/internal/realtime"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	zlog, err := logger.New(cfg.Log.Level)
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := infra.NewDB(ctx, cfg.DB.DSN)
	if err != nil {
		zlog.Fatal("connecting postgres", zap.Error(err))
	}
	defer dbPool.Close()

	redisClient := infra.NewRedis(cfg.Redis.Addr)
	defer func() { _ = redisClient.Close() }()

	clk := clock.System{}
	hub := realtime.NewHub(zlog)

	orderStore := order.NewStore(dbPool)
	orderSvc := order.NewService(orderStore, hub, clk, cfg.Deadlines)

	locationStore := location.NewStore(redisClient)
	locationSvc := location.NewService(locationStore, orderSvc, hub, clk, zlog)

	var geocoder area.Geocoder
	if cfg.Maps.APIKey != "" {
		g, err := maps.NewGeocodeService(cfg.Maps.APIKey)
		if err != nil {
			zlog.Fatal("initialising geocoder", zap.Error(err))
		}
		geocoder = g
	} else {
		zlog.Warn("KURYE_MAPS_API_KEY not set; delivery areas will be name-only")
	}
	areaStore := area.NewStore(dbPool)
	areaSvc := area.NewService(areaStore, geocoder, clk, zlog)

	gateway := realtime.NewGateway(hub, locationSvc, zlog)

	engine := order.NewDeadlineEngine(orderSvc, clk, cfg.Deadlines, zlog)
	go engine.RunAutoDeleteWatch(ctx)
	go engine.RunOverdueWatch(ctx)

	router := httptransport.NewRouter(httptransport.RouterDeps{
		Order:    orderSvc,
		Location: locationSvc,
		Areas:    areaSvc,
		Hub:      hub,
		Gateway:  gateway,
		Log:      zlog,
	})

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: router}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	zlog.Info("listening", zap.String("addr", cfg.HTTP.Addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		zlog.Fatal("server", zap.Error(err))
	}
}
