package httpapi

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/discovery"
)

// DiscoveryRunner starts one discovery batch.
type DiscoveryRunner interface {
	Run(ctx context.Context) (*discovery.Report, error)
}

// RunResponse is the body of a completed trigger.
type RunResponse struct {
	Success            bool                        `json:"success"`
	RunID              string                      `json:"runId"`
	LocationsProcessed int                         `json:"locationsProcessed"`
	Results            []discovery.LocationOutcome `json:"results"`
	Partial            bool                        `json:"partial"`
}

// DiscoveryHandler serves the scheduled trigger.
type DiscoveryHandler struct {
	runner     DiscoveryRunner
	cronSecret []byte
	log        *zap.Logger
}

// NewDiscoveryHandler returns a handler guarded by cronSecret.
func NewDiscoveryHandler(runner DiscoveryRunner, cronSecret string, log *zap.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{runner: runner, cronSecret: []byte(cronSecret), log: log}
}

// Run triggers a batch and waits for its report.
//
// @Summary      Run scholarship discovery
// @Description  Discovers scholarships for every distinct profile location and queues them for moderation.
// @Tags         discovery
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  RunResponse
// @Failure      401  {object}  errorBody
// @Failure      409  {object}  errorBody
// @Failure      500  {object}  errorBody
// @Router       /discovery/run [post]
func (h *DiscoveryHandler) Run(c *gin.Context) {
	if len(h.cronSecret) == 0 {
		writeError(c, h.log, errors.New("cron secret is not configured"))
		return
	}
	token, ok := adminauth.BearerToken(c.GetHeader("Authorization"))
	if !ok || subtle.ConstantTimeCompare([]byte(token), h.cronSecret) != 1 {
		writeError(c, h.log, apperr.ErrUnauthorized)
		return
	}

	// The batch carries its own budget; a dropped connection must not cut it short.
	report, err := h.runner.Run(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		writeError(c, h.log, err)
		return
	}

	results := report.Results
	if results == nil {
		results = []discovery.LocationOutcome{}
	}
	c.JSON(http.StatusOK, RunResponse{
		Success:            true,
		RunID:              report.RunID,
		LocationsProcessed: report.LocationsProcessed,
		Results:            results,
		Partial:            report.Partial,
	})
}
