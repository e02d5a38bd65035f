// Package api exposes a read-only HTTP surface over the engine: health,
// single-market reports and cross-market opportunity rankings.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/quantrail/merchantiq/internal/config"
	"github.com/quantrail/merchantiq/internal/engine"
	"github.com/quantrail/merchantiq/internal/store"
)

// Handler serves evaluation results. The engine is rebuilt per request
// from the current configuration snapshot, so a hot reload of thresholds,
// weights, FX rates or fee schedules governs the next request while
// in-flight requests finish on the snapshot they started with.
type Handler struct {
	cfgStore *config.Store
	source   engine.SeriesSource
	logger   *logrus.Logger
}

// NewHandler wires the API handler.
func NewHandler(cfgStore *config.Store, source engine.SeriesSource, logger *logrus.Logger) *Handler {
	return &Handler{cfgStore: cfgStore, source: source, logger: logger}
}

// SetupRoutes registers all routes on a router.
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.GET("/health", h.Health)

	v1 := router.Group("/api/v1")
	{
		v1.GET("/report/:marketplace/:asin", h.MarketReport)
		v1.GET("/arbitrage/:asin", h.Arbitrage)
	}
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "engine_version": engine.Version})
}

// MarketReport returns the single-market evaluation for one
// (marketplace, ASIN) unit.
func (h *Handler) MarketReport(c *gin.Context) {
	asin := c.Param("asin")
	marketplace := c.Param("marketplace")
	category := c.DefaultQuery("category", config.GenericCategory)

	eng := engine.New(h.source, h.cfgStore.Snapshot(), h.logger)
	report, err := eng.Evaluator.EvaluateMarket(c.Request.Context(), asin, marketplace, category)
	if err != nil {
		h.renderError(c, err, asin, marketplace)
		return
	}

	c.JSON(http.StatusOK, report)
}

// Arbitrage returns the ranked cross-marketplace opportunity list for an
// ASIN across the enabled marketplaces.
func (h *Handler) Arbitrage(c *gin.Context) {
	asin := c.Param("asin")
	category := c.DefaultQuery("category", config.GenericCategory)
	cfg := h.cfgStore.Snapshot()

	eng := engine.New(h.source, cfg, h.logger)
	run, err := eng.Matcher.FindOpportunities(c.Request.Context(), asin, cfg.Marketplaces.Enabled, category)
	if err != nil {
		h.renderError(c, err, asin, "")
		return
	}

	c.JSON(http.StatusOK, run)
}

// renderError maps local evaluation failures to client status codes; only
// genuinely unexpected errors become a 500.
func (h *Handler) renderError(c *gin.Context, err error, asin, marketplace string) {
	switch {
	case errors.Is(err, store.ErrNoHistory):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, engine.ErrNoPriceAvailable):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		c.JSON(http.StatusRequestTimeout, gin.H{"error": err.Error()})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"asin":        asin,
			"marketplace": marketplace,
		}).Error("Evaluation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
