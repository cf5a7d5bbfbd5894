package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/services"
	"github.com/narsimha-film/abtest-backend/internal/types"
)

type AdminHandler struct {
	log           *logger.Logger
	experimentSvc services.ExperimentService
}

func NewAdminHandler(log *logger.Logger, experimentSvc services.ExperimentService) *AdminHandler {
	return &AdminHandler{
		log:           log.With("handler", "AdminHandler"),
		experimentSvc: experimentSvc,
	}
}

// POST /api/admin/experiments
func (h *AdminHandler) CreateExperiment(c *gin.Context) {
	var input services.CreateExperimentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id, err := h.experimentSvc.CreateExperiment(c.Request.Context(), nil, input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"experiment_id": id})
}

// POST /api/admin/experiments/:id/start
func (h *AdminHandler) StartExperiment(c *gin.Context) {
	h.updateStatus(c, h.experimentSvc.StartExperiment)
}

// POST /api/admin/experiments/:id/pause
func (h *AdminHandler) PauseExperiment(c *gin.Context) {
	h.updateStatus(c, h.experimentSvc.PauseExperiment)
}

// POST /api/admin/experiments/:id/stop
func (h *AdminHandler) StopExperiment(c *gin.Context) {
	h.updateStatus(c, h.experimentSvc.StopExperiment)
}

// GET /api/admin/experiments/:id/results
func (h *AdminHandler) ExperimentResults(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid experiment id"})
		return
	}

	results, err := h.experimentSvc.GetResults(c.Request.Context(), nil, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, results)
}

func (h *AdminHandler) updateStatus(c *gin.Context, fn func(ctx context.Context, tx *gorm.DB, id uuid.UUID) (*types.Experiment, error)) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid experiment id"})
		return
	}

	exp, err := fn(c.Request.Context(), nil, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "experiment not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"experiment": exp})
}
