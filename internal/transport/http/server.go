package http

import (
	"github.com/gin-gonic/gin"

	"pdfchat/internal/transport/http/handler"
	"pdfchat/internal/transport/http/middleware"
)

type RouterDeps struct {
	JWTSecret string
	Query     *handler.QueryHandler
	History   *handler.HistoryHandler
	Documents *handler.DocumentsHandler
	Metrics   *handler.MetricsHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.GET("/healthz", handler.Health)

	v1 := r.Group("/api/v1")

	authed := v1.Group("")
	authed.Use(middleware.AuthJWT(deps.JWTSecret))
	{
		authed.POST("/query", deps.Query.Ask)

		authed.GET("/history", deps.History.Get)
		authed.DELETE("/history", deps.History.Delete)

		authed.POST("/documents", deps.Documents.Upload)
		authed.GET("/documents", deps.Documents.List)
		authed.DELETE("/documents", deps.Documents.Delete)
		authed.POST("/ingest", deps.Documents.Ingest)
	}

	m := v1.Group("/metrics")
	{
		m.GET("/stats", deps.Metrics.Stats)
		m.GET("/user/:user_id", deps.Metrics.UserStats)
		m.GET("/top-users", deps.Metrics.TopUsers)
		m.GET("/top-documents", deps.Metrics.TopDocuments)
		m.GET("/errors", deps.Metrics.Errors)
		m.GET("/time-series", deps.Metrics.TimeSeries)
		m.GET("/export", deps.Metrics.Export)
	}

	return r
}
