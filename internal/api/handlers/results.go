package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	perr "smartcamera-hub/internal/errors"
	"smartcamera-hub/internal/logging"
	"smartcamera-hub/internal/models"
	"smartcamera-hub/internal/services/ingest"
)

const (
	defaultLatestLimit = 10
	maxLatestLimit     = 100
)

// Ingestor accepts detection batches from inference workers
type Ingestor interface {
	Ingest(ctx context.Context, batch *models.DetectionBatch) (*ingest.Outcome, error)
}

type ResultsHandler struct {
	ingestor Ingestor
}

func NewResultsHandler(ingestor Ingestor) *ResultsHandler {
	return &ResultsHandler{ingestor: ingestor}
}

type IngestResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Detection result received and broadcasted"`
}

// @Summary Receive an AI detection result
// @Description Broadcasts the batch to the camera's viewers and to AllCameras, and raises an alert to all viewers for confident person detections
// @Tags results
// @Accept json
// @Produce json
// @Param batch body models.DetectionBatch true "Detection batch"
// @Success 200 {object} IngestResponse
// @Failure 400 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /api/results/ai-detection [post]
func (h *ResultsHandler) ReceiveDetection(c *gin.Context) {
	var batch models.DetectionBatch
	if err := c.ShouldBindJSON(&batch); err != nil {
		respondError(c, perr.Wrap(err, perr.ErrorCodeValidation, "invalid detection batch"))
		return
	}

	out, err := h.ingestor.Ingest(c.Request.Context(), &batch)
	if err != nil {
		respondError(c, err)
		return
	}

	logging.Debug(c).
		Str("camera_id", out.CameraID).
		Bool("alert", out.Alert != nil).
		Msg("Detection result accepted")
	c.JSON(http.StatusOK, IngestResponse{
		Success: true,
		Message: "Detection result received and broadcasted",
	})
}

// @Summary Latest results for a camera
// @Description Results are not persisted by this service, so the list is always empty
// @Tags results
// @Produce json
// @Param cameraId path string true "Camera ID"
// @Param limit query int false "Maximum number of results" default(10)
// @Success 200 {array} models.DetectionBatch
// @Failure 400 {object} ErrorResponse
// @Router /api/results/camera/{cameraId}/latest [get]
func (h *ResultsHandler) LatestResults(c *gin.Context) {
	limit := defaultLatestLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxLatestLimit {
			respondError(c, perr.Validationf("limit must be between 1 and %d", maxLatestLimit))
			return
		}
		limit = n
	}

	results := []models.DetectionBatch{}
	logging.Debug(c).Str("camera_id", c.Param("cameraId")).Int("limit", limit).Msg("Latest results requested")
	c.JSON(http.StatusOK, results)
}
