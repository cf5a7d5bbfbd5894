package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/narsimha-film/abtest-backend/internal/logger"
	"github.com/narsimha-film/abtest-backend/internal/services"
	"github.com/narsimha-film/abtest-backend/internal/sessiondata"
)

type ExperimentHandler struct {
	log           *logger.Logger
	experimentSvc services.ExperimentService
}

func NewExperimentHandler(log *logger.Logger, experimentSvc services.ExperimentService) *ExperimentHandler {
	return &ExperimentHandler{
		log:           log.With("handler", "ExperimentHandler"),
		experimentSvc: experimentSvc,
	}
}

type assignRequest struct {
	Experiment string `json:"experiment" binding:"required"`
	UserID     *int64 `json:"user_id,omitempty"`
}

// POST /api/assign
// A null assignment is a normal outcome: the consumer renders the default
// experience.
func (h *ExperimentHandler) Assign(c *gin.Context) {
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sessionID := sessiondata.GetSessionID(c.Request.Context())
	va, err := h.experimentSvc.AssignUser(c.Request.Context(), nil, req.Experiment, sessionID, services.AssignOptions{
		UserID:    req.UserID,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignment": va})
}

// GET /api/experiments/active
func (h *ExperimentHandler) ActiveExperiments(c *gin.Context) {
	sessionID := sessiondata.GetSessionID(c.Request.Context())

	var userID *int64
	if raw := c.Query("user_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		userID = &parsed
	}

	assignments, err := h.experimentSvc.UserExperiments(c.Request.Context(), nil, sessionID, services.AssignOptions{
		UserID:    userID,
		IP:        c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"assignments": assignments})
}

type trackRequest struct {
	AssignmentID uuid.UUID      `json:"assignment_id" binding:"required"`
	EventType    string         `json:"event_type" binding:"required"`
	Data         map[string]any `json:"data,omitempty"`
	Value        float64        `json:"value,omitempty"`
}

// POST /api/track
func (h *ExperimentHandler) Track(c *gin.Context) {
	var req trackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	tracked, err := h.experimentSvc.TrackEvent(c.Request.Context(), nil, req.AssignmentID, req.EventType, req.Data, req.Value)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"tracked": tracked})
}
