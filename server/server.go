package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chaos-io/idphoto/config"
)

// InitRoutes 注册全部路由
func InitRoutes(cfg *config.Config, handler *Handler) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	// 前端在浏览器里直接调用，放开跨域
	router.Use(gin.Recovery(), cors.Default(), RequestID(), Logger(), Timeout(cfg.Server.Timeout))
	if cfg.Limits.MaxUploadBytes > 0 {
		router.MaxMultipartMemory = cfg.Limits.MaxUploadBytes
	}

	router.GET("/health", handler.Health)
	router.POST("/remove-background", handler.RemoveBackground)
	router.POST("/change-background", handler.ChangeBackground)
	router.POST("/create-passport-grid", handler.CreatePassportGrid)

	return router
}

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
