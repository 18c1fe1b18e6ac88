package http

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/tessella/tessella-backend/internal/http/handlers"
	"github.com/tessella/tessella-backend/internal/platform/envutil"
)

type RouterConfig struct {
	ServiceName   string
	RunHandler    *httpH.RunHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(cors.New(corsConfig()))

	if cfg.HealthHandler != nil {
		r.GET("/healthz", cfg.HealthHandler.HealthCheck)
	}

	v1 := r.Group("/v1")
	{
		if cfg.RunHandler != nil {
			v1.POST("/runs", cfg.RunHandler.CreateRun)
			v1.GET("/runs", cfg.RunHandler.ListRuns)
			v1.GET("/runs/:id", cfg.RunHandler.GetRun)
			v1.GET("/runs/:id/traces", cfg.RunHandler.GetRunTraces)
		}
	}
	return r
}

func corsConfig() cors.Config {
	c := cors.DefaultConfig()
	origins := envutil.String("CORS_ALLOWED_ORIGINS", "")
	if origins == "" {
		c.AllowAllOrigins = true
	} else {
		c.AllowOrigins = splitCSV(origins)
	}
	c.AllowHeaders = append(c.AllowHeaders, "Authorization")
	return c
}

func splitCSV(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
