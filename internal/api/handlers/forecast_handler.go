package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/andresuchdata/autopo-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/autopo-forecast/backend-go/internal/service"
)

const maxHorizon = 24

type ForecastHandler struct {
	orchestrator    *pipeline.Orchestrator
	forecasts       *service.ForecastService
	recommendations *service.RecommendationService
	reports         *service.ReportService
	now             func() time.Time
}

func NewForecastHandler(
	orchestrator *pipeline.Orchestrator,
	forecasts *service.ForecastService,
	recommendations *service.RecommendationService,
	reports *service.ReportService,
) *ForecastHandler {
	return &ForecastHandler{
		orchestrator:    orchestrator,
		forecasts:       forecasts,
		recommendations: recommendations,
		reports:         reports,
		now:             time.Now,
	}
}

// WithClock replaces the clock used when a request omits as_of or month.
func (h *ForecastHandler) WithClock(now func() time.Time) *ForecastHandler {
	h.now = now
	return h
}

type runRequest struct {
	AsOf       string  `json:"as_of"`
	ProductIDs []int64 `json:"product_ids"`
}

// RunBatch runs the end-of-month batch for as_of, optionally restricted to
// product_ids, and returns the report.
func (h *ForecastHandler) RunBatch(c *gin.Context) {
	var req runRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}
	}

	asOf, err := h.parseDate(req.AsOf)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var report *domain.RunReport
	if len(req.ProductIDs) > 0 {
		report, err = h.orchestrator.RunProducts(c.Request.Context(), asOf, req.ProductIDs)
	} else {
		report, err = h.orchestrator.Run(c.Request.Context(), asOf)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	h.reports.Publish(c.Request.Context(), report)
	c.JSON(http.StatusOK, report)
}

func (h *ForecastHandler) LatestReport(c *gin.Context) {
	month := pipeline.TargetMonth(h.now())
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		month = parsed
	}

	report, ok, err := h.reports.Latest(c.Request.Context(), month)
	if err != nil {
		respondError(c, err)
		return
	}
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("no run report for %s", domain.MonthKey(month))})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ForecastHandler) Predict(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	asOf, err := h.parseDate(c.Query("as_of"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	horizon := 1
	if raw := c.Query("horizon"); raw != "" {
		horizon, err = strconv.Atoi(raw)
		if err != nil || horizon <= 0 || horizon > maxHorizon {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("horizon must be between 1 and %d", maxHorizon)})
			return
		}
	}

	product, points, err := h.forecasts.PredictByID(c.Request.Context(), id, asOf, horizon)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"product":   product,
		"forecasts": points,
	})
}

// StoredForecasts lists stored forecasts between from and to (inclusive
// months). The default window is the twelve months ending at the next month.
func (h *ForecastHandler) StoredForecasts(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	to := pipeline.TargetMonth(h.now())
	if raw := c.Query("to"); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		to = parsed
	}
	from := domain.AddMonths(to, -11)
	if raw := c.Query("from"); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		from = parsed
	}
	if from.After(to) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "from must not be after to"})
		return
	}

	rows, err := h.forecasts.StoredForecasts(c.Request.Context(), id, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []domain.ForecastRow{}
	}

	c.JSON(http.StatusOK, gin.H{"forecasts": rows})
}

func (h *ForecastHandler) Series(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	cutoff, err := h.parseDate(c.Query("cutoff"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	view, err := h.forecasts.Series(c.Request.Context(), id, cutoff)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *ForecastHandler) Recommendations(c *gin.Context) {
	id, ok := productID(c)
	if !ok {
		return
	}

	month := pipeline.TargetMonth(h.now())
	if raw := strings.TrimSpace(c.Query("month")); raw != "" {
		parsed, err := domain.ParseMonth(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		month = parsed
	}

	recs, err := h.recommendations.List(c.Request.Context(), id, month)
	if err != nil {
		respondError(c, err)
		return
	}
	if recs == nil {
		recs = []domain.Recommendation{}
	}

	c.JSON(http.StatusOK, gin.H{"recommendations": recs})
}

func (h *ForecastHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": h.now().UTC()})
}

// parseDate accepts YYYY-MM-DD; an empty value means now.
func (h *ForecastHandler) parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return h.now(), nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
	}
	return t, nil
}

func productID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid product id"})
		return 0, false
	}
	return id, true
}

// respondError maps domain errors to status codes.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrProductNotFound):
		status = http.StatusNotFound
	case domain.IsConfiguration(err), domain.IsInsufficientData(err), domain.IsRecommendationInput(err):
		status = http.StatusUnprocessableEntity
	}

	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
