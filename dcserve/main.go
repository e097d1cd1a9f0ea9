package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	kitlog "github.com/go-kit/kit/log"

	"github.com/soniakeys/diffcor/internal/dcserve"
	"github.com/soniakeys/diffcor/internal/ephem"
)

func main() {
	dir := flag.String("c", ".", "directory of dcserve.toml")
	flag.Parse()

	logger := kitlog.NewLogfmtLogger(kitlog.NewSyncWriter(os.Stderr))
	logger = kitlog.With(logger, "ts", kitlog.DefaultTimestampUTC)

	cfg, err := dcserve.LoadConfig(*dir)
	if err != nil {
		logger.Log("level", "error", "msg", "config", "err", err)
		os.Exit(1)
	}
	eph, err := ephem.New(cfg.Ephem, cfg.EphemArg())
	if err != nil {
		logger.Log("level", "error", "msg", "ephemeris", "err", err)
		os.Exit(1)
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           dcserve.New(cfg, eph, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Log("level", "info", "msg", "listening", "addr", cfg.Addr, "ephem", cfg.Ephem)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log("level", "error", "msg", "listen", "err", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log("level", "error", "msg", "shutdown", "err", err)
		os.Exit(1)
	}
	logger.Log("level", "info", "msg", "stopped")
}
