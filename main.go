package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/chaos-io/idphoto/config"
	"github.com/chaos-io/idphoto/photo"
	"github.com/chaos-io/idphoto/rembg"
	"github.com/chaos-io/idphoto/server"
)

func main() {
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(logrus.InfoLevel)

	viperInstance, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Cannot load config. Error: {%s}", err.Error())
	}

	cfg, err := config.ParseConfig(viperInstance)
	if err != nil {
		logrus.Fatalf("Cannot parse config. Error: {%s}", err.Error())
	}

	// 分割模型为进程级状态，启动时装配一次，注入 handler
	var segmenter rembg.Segmenter
	var probe *rembg.Probe
	if cfg.RemBG.BaseURL != "" {
		segmenter = rembg.NewBiRefNet(cfg.RemBG.BaseURL, cfg.RemBG.Model, cfg.RemBG.Timeout)
		probe = rembg.NewProbe(cfg.RemBG.BaseURL)
		if err := probe.Start(cfg.RemBG.ProbeInterval); err != nil {
			logrus.Fatalf("Cannot start backend probe. Error: {%s}", err.Error())
		}
		defer probe.Stop()
		logrus.WithField("base_url", cfg.RemBG.BaseURL).Info("using BiRefNet segmentation backend")
	} else {
		segmenter = rembg.NewOpaque()
		logrus.Warn("no segmentation backend configured, background removal disabled")
	}

	layout := photo.NewLayout(cfg.Limits.MaxCanvasPixels)
	handler := server.NewHandler(layout, segmenter, probe, cfg.Limits.MaxUploadBytes)
	router := server.InitRoutes(cfg, handler)

	srv := new(server.Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.Fatalf("Error occurred while running http server: %s", err.Error())
		}
	}()
	logrus.WithField("addr", cfg.Server.Host+":"+cfg.Server.Port).Info("server started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("server shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("error occurred on server shutting down: %s", err.Error())
	}
}
