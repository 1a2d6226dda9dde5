package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sendgate/sendgate/dto"
	"github.com/sendgate/sendgate/interfaces"
	"github.com/sendgate/sendgate/internal/tracing"
	"github.com/sendgate/sendgate/internal/utils"
)

// SubmitSend handles the submission of one standalone message.
func SubmitSend(admission interfaces.AdmissionService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "SubmitSend", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		var request dto.SendRequest
		if err := c.ShouldBindJSON(&request); err != nil {
			tracing.TraceErr(span, err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format", "details": err.Error()})
			return
		}
		if request.RequestID == "" {
			request.RequestID = utils.GetRequestIDFromContext(ctx)
		}

		if request.FromAddress == "" || len(request.ToAddresses) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "fromAddress and at least one toAddress are required"})
			return
		}

		acceptance, err := admission.Submit(ctx, tenant, &request)
		if err != nil {
			respondWithAdmissionError(c, span, err)
			return
		}

		// Replays answer exactly like the original submission did.
		c.JSON(http.StatusAccepted, acceptance)
	}
}

// GetQuota reports the tenant's standing against its daily limit.
func GetQuota(quota interfaces.QuotaService) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracing.StartHttpServerTracerSpanWithHeader(c.Request.Context(), "GetQuota", c.Request.Header)
		defer span.Finish()
		tracing.TagComponentRest(span)
		tenant := utils.GetTenantFromContext(ctx)
		tracing.TagTenant(span, tenant)

		status := quota.Check(ctx, tenant)
		if status.Decision == dto.QuotaDenied && status.Reason == dto.QuotaReasonTenantNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant not found"})
			return
		}
		c.JSON(http.StatusOK, status)
	}
}
