package server

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	obsmetrics "github.com/smallbiznis/fleetwatch/internal/observability/metrics"
)

const orgIDKey = "sweep_org_id"

type triggerSweepRequest struct {
	OrganizationID string `json:"organization_id"`
}

type triggerSweepResponse struct {
	Data any `json:"data"`
}

// TriggerSweep runs one sweep synchronously and returns its summary.
// The organization comes from the JSON body, the org_id query or the X-Org-ID header, in that order.
func (s *Server) TriggerSweep(c *gin.Context) {
	orgID := c.GetString(orgIDKey)

	summary, err := s.trigger.Trigger(c.Request.Context(), obsmetrics.TriggerHTTP, orgID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, triggerSweepResponse{Data: summary})
}

// resolveOrgID reads and validates the optional organization filter once per request.
func resolveOrgID(c *gin.Context) (string, error) {
	if v, ok := c.Get(orgIDKey); ok {
		return v.(string), nil
	}

	var req triggerSweepRequest
	if c.Request.Body != nil && c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			return "", newValidationError("body", "invalid_json", "request body is not valid JSON")
		}
	}
	raw := strings.TrimSpace(req.OrganizationID)
	if raw == "" {
		raw = strings.TrimSpace(c.Query("org_id"))
	}
	if raw == "" {
		raw = strings.TrimSpace(c.GetHeader(HeaderOrg))
	}
	if raw != "" {
		id, err := snowflake.ParseString(raw)
		if err != nil || id <= 0 {
			return "", newValidationError("organization_id", "invalid_organization_id", "invalid organization id")
		}
		raw = id.String()
	}
	c.Set(orgIDKey, raw)
	return raw, nil
}
