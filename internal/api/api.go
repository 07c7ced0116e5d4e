package api

import (
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/api/handlers"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/api/middleware"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/service"
)

type Services struct {
	Orchestrator    *pipeline.Orchestrator
	Forecasts       *service.ForecastService
	Recommendations *service.RecommendationService
	Reports         *service.ReportService

	// Now overrides the handler clock; nil means time.Now.
	Now func() time.Time
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	corsConfig := cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", "http://127.0.0.1:3000"},
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	apiGroup := router.Group("/api/v1")

	if services != nil {
		h := handlers.NewForecastHandler(services.Orchestrator, services.Forecasts, services.Recommendations, services.Reports)
		if services.Now != nil {
			h.WithClock(services.Now)
		}

		apiGroup.GET("/health", h.Health)

		forecastGroup := apiGroup.Group("/forecast")
		{
			forecastGroup.POST("/runs", h.RunBatch)
			forecastGroup.GET("/runs/latest", h.LatestReport)

			productGroup := forecastGroup.Group("/products/:id")
			{
				productGroup.POST("/predict", h.Predict)
				productGroup.GET("/forecasts", h.StoredForecasts)
				productGroup.GET("/series", h.Series)
				productGroup.GET("/recommendations", h.Recommendations)
			}
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		for _, part := range strings.Split(origin, ",") {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
