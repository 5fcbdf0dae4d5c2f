package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appErrors "github.com/neurobridge/scheduling-api/pkg/errors"
)

// actorHeader identifies the caller for the audit trail. Identity is resolved
// upstream by the gateway; this service only records what it is told.
const actorHeader = "X-Actor-ID"

func actorFromContext(c *gin.Context) string {
	if actor := c.GetHeader(actorHeader); actor != "" {
		return actor
	}
	return "anonymous"
}

func dateQuery(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" is required (YYYY-MM-DD)")
	}
	date, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, name+" must be formatted YYYY-MM-DD")
	}
	return date, nil
}
