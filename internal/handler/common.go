package handler

import (
	"errors"
	"net/http"

	apperrors "eventx-ticketing/pkg/app_errors"
	"eventx-ticketing/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// retryAfterSeconds is sent with 503 responses for transient storage failures.
const retryAfterSeconds = "1"

func BindJson(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

func BindQuery(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request format",
		})
		return err
	}
	return nil
}

// parseID reads a uuid path parameter, answering 400 when it is malformed.
func parseID(c *gin.Context, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + label + " id"})
		return uuid.Nil, false
	}
	return id, true
}

// handleError 依錯誤類別轉換 HTTP 狀態碼
func handleError(c *gin.Context, err error, operation string) {
	log := logger.WithComponent("handler").With(
		zap.String("operation", operation),
		zap.String("path", c.FullPath()),
		zap.Error(err),
	)

	kind := apperrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperrors.KindNotFound:
		status = http.StatusNotFound
	case apperrors.KindCapacity, apperrors.KindConflict:
		status = http.StatusConflict
	case apperrors.KindState:
		status = http.StatusConflict
		if errors.Is(err, apperrors.ErrEventNotBookable) {
			status = http.StatusUnprocessableEntity
		}
	case apperrors.KindInvalid:
		status = http.StatusBadRequest
	case apperrors.KindUnauthorized:
		status = http.StatusUnauthorized
	case apperrors.KindForbidden:
		status = http.StatusForbidden
	case apperrors.KindTransient:
		log.Warn("Storage unavailable")
		c.Header("Retry-After", retryAfterSeconds)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable", "code": kind.String()})
		return
	default:
		log.Error("Unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	log.Info("Request rejected", zap.String("kind", kind.String()))
	c.JSON(status, gin.H{"error": err.Error(), "code": kind.String()})
}
