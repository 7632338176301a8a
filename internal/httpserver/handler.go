package httpserver

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"repo-sync-automation/internal/middleware"
	"repo-sync-automation/internal/model"
	"repo-sync-automation/pkg/response"
)

func (srv HTTPServer) mapHandlers() {
	srv.gin.HandleMethodNotAllowed = true
	srv.gin.NoRoute(response.NotFound)
	srv.gin.NoMethod(response.MethodNotAllowed)

	srv.registerMiddlewares()
	srv.registerSystemRoutes()
	srv.registerDomainRoutes()
}

func (srv HTTPServer) registerMiddlewares() {
	mw := middleware.New(srv.l)
	srv.gin.Use(mw.Recovery(), mw.RequestLogger())

	ctx := context.Background()
	if srv.environment == string(model.EnvironmentProduction) {
		srv.l.Infof(ctx, "HTTP mode: production")
	} else {
		srv.l.Infof(ctx, "HTTP mode: %s", srv.environment)
	}
}

func (srv HTTPServer) registerSystemRoutes() {
	srv.gin.GET("/health", srv.healthCheck)
	srv.gin.GET("/ready", srv.readyCheck)
	srv.gin.GET("/live", srv.liveCheck)
	srv.gin.GET("/status", srv.status)
	srv.gin.GET("/metrics", gin.WrapH(promhttp.Handler()))

	srv.gin.GET("/swagger/*any", ginSwagger.WrapHandler(
		swaggerFiles.Handler,
		ginSwagger.URL("doc.json"),
		ginSwagger.DefaultModelsExpandDepth(-1),
	))
}

// registerDomainRoutes registers the webhook receiver.
func (srv HTTPServer) registerDomainRoutes() {
	srv.gin.POST(srv.webhookPath, srv.webhookHandler.HandleWebhook)
	srv.l.Infof(context.Background(), "Webhook route registered at POST %s", srv.webhookPath)
}
