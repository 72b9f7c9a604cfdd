package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	perr "smartcamera-hub/internal/errors"
	"smartcamera-hub/internal/logging"
)

// ErrorResponse is the body of every non-2xx reply
type ErrorResponse struct {
	Code  string `json:"code" example:"validation"`
	Error string `json:"error" example:"CameraId is required"`
}

// respondError maps err onto its HTTP status. Internal faults never leak
// their message to the caller.
func respondError(c *gin.Context, err error) {
	status, wire := perr.HTTP(err)
	if status == http.StatusInternalServerError {
		logging.Error(c).Err(err).Str("path", c.FullPath()).Msg("Request failed")
		wire.Message = "Internal server error"
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Code: wire.Code, Error: wire.Message})
}
