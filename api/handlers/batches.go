package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

// CreateBatch accepts a bulk submission for asynchronous processing.
func CreateBatch(batches interfaces.BatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "CreateBatch", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		var request dto.BatchRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}

		acceptance, err := batches.CreateBatch(ctx, tenant, &request)
		if err != nil {
			respondWithAdmissionError(c, span, err)
			return
		}

		c.JSON(http.StatusAccepted, acceptance)
	}
}

// GetBatchStatus reports a batch's progress and counters.
func GetBatchStatus(batches interfaces.BatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetBatchStatus", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)
		batchID := c.Param("id")
		tracing.TagEntity(span, batchID)

		status, err := batches.GetBatchStatus(ctx, tenant, batchID)
		if err != nil {
			respondWithAdmissionError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, status)
	}
}

// GetBatchEmails lists the per-item outbox entries of a batch.
func GetBatchEmails(batches interfaces.BatchService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetBatchEmails", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)
		batchID := c.Param("id")
		tracing.TagEntity(span, batchID)

		emails, err := batches.GetBatchEmails(ctx, tenant, batchID)
		if err != nil {
			respondWithAdmissionError(c, span, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"batchId": batchID,
			"emails":  emails,
		})
	}
}
