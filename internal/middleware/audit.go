package middleware

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/preparatorio-aauma-api/internal/models"
)

// ViewRecorder appends view entries to the audit trail.
type ViewRecorder interface {
	RecordView(ctx context.Context, actor models.Actor, viewType, resourceType, resourceID string)
}

// AuditView records a view entry after successful requests. The :id route param, when
// present, becomes the resource id.
func AuditView(recorder ViewRecorder, viewType, resourceType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if recorder == nil || c.Writer.Status() >= 400 {
			return
		}
		actor := models.Actor{
			Session:   SessionFrom(c),
			IPAddress: c.ClientIP(),
			UserAgent: c.GetHeader("User-Agent"),
		}
		recorder.RecordView(c.Request.Context(), actor, viewType, resourceType, c.Param("id"))
	}
}
