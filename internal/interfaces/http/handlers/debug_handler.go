package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/reelchat/reelchat/internal/application/usecase"
	"github.com/reelchat/reelchat/internal/infrastructure/llm"
	domainErrors "github.com/reelchat/reelchat/pkg/errors"
)

// ProviderLister reports LLM provider health (the llm.Router).
type ProviderLister interface {
	ListProviders(ctx context.Context) []llm.ProviderStatus
}

// DebugHandler serves the diagnostics endpoints.
type DebugHandler struct {
	probe     *usecase.ProbeUseCase
	providers ProviderLister
	logger    *zap.Logger
}

// NewDebugHandler creates the handler. providers may be nil.
func NewDebugHandler(uc *usecase.ProbeUseCase, providers ProviderLister, logger *zap.Logger) *DebugHandler {
	return &DebugHandler{
		probe:     uc,
		providers: providers,
		logger:    logger,
	}
}

// Probe GET /api/debug/probe?test=agent|search|trending|genres
//
// Always answers 200; the body says whether the probe passed.
func (h *DebugHandler) Probe(c *gin.Context) {
	res, err := h.probe.Run(c.Request.Context(), c.Query("test"))
	if domainErrors.IsInvalidInput(err) {
		c.JSON(http.StatusOK, gin.H{
			"error":          usecase.ErrInvalidProbe,
			"availableTests": usecase.AvailableProbes,
		})
		return
	}
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"test": usecase.ProbeName(c.Query("test")), "success": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, res)
}

// RefreshGenres POST /api/debug/genres/refresh
func (h *DebugHandler) RefreshGenres(c *gin.Context) {
	genres, err := h.probe.RefreshGenres(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err, "Failed to refresh genres")
		return
	}
	c.JSON(http.StatusOK, gin.H{"genres": genres.Genres, "count": len(genres.Genres)})
}

// Providers GET /api/debug/providers
func (h *DebugHandler) Providers(c *gin.Context) {
	statuses := []llm.ProviderStatus{}
	if h.providers != nil {
		statuses = h.providers.ListProviders(c.Request.Context())
	}
	c.JSON(http.StatusOK, gin.H{"providers": statuses})
}
