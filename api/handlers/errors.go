package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	apperrors "github.com/sendgate/sendgate/internal/errors"
	"github.com/sendgate/sendgate/internal/tracing"
)

// respondWithAdmissionError maps the admission error taxonomy onto HTTP
// status codes and a structured JSON body the caller can act on.
func respondWithAdmissionError(c *gin.Context, span opentracing.Span, err error) {
	tracing.TraceErr(span, err)

	switch e := err.(type) {
	case *apperrors.IdempotencyConflictError:
		c.JSON(http.StatusConflict, gin.H{
			"error":     "idempotency conflict",
			"clientKey": e.ClientKey,
			"details":   e.Error(),
		})
	case *apperrors.ContentRejectedError:
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    "content rejected",
			"reasons":  e.Reasons,
			"warnings": e.Warnings,
			"score":    e.Score,
		})
	case *apperrors.QuotaExceededError:
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":    "daily quota exceeded",
			"current":  e.Current,
			"limit":    e.Limit,
			"resetsAt": e.ResetsAt,
		})
	case *apperrors.SuspendedError:
		c.JSON(http.StatusForbidden, gin.H{
			"error":   "tenant is suspended",
			"details": e.Error(),
		})
	case *apperrors.EnqueueError:
		// The record was rolled back; the request is safe to retry.
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":     "dispatch queue unavailable",
			"retryable": true,
		})
	case *apperrors.BatchValidationError:
		c.JSON(http.StatusBadRequest, gin.H{
			"error":     "batch validation failed",
			"reasons":   e.Reasons,
			"truncated": e.Truncated,
		})
	default:
		switch err {
		case apperrors.ErrTenantNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
		case apperrors.ErrBatchNotFound:
			c.JSON(http.StatusNotFound, gin.H{"error": "batch not found"})
		case apperrors.ErrBatchEmpty, apperrors.ErrBatchTooLarge:
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "details": err.Error()})
		}
	}
}
