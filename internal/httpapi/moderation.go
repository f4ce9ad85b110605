package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/moderation"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

const principalKey = "principal"

type listQuery struct {
	Status string `form:"status"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

type decisionBody struct {
	ReviewerNotes *string `json:"reviewerNotes" binding:"omitempty,max=2000"`
}

// ListResponse wraps the moderation queue page.
type ListResponse struct {
	Items []moderation.Item `json:"items"`
}

// DecisionResponse reports the status a record moved to.
type DecisionResponse struct {
	Success bool              `json:"success"`
	Status  moderation.Status `json:"status"`
}

// ModerationHandler serves the admin queue.
type ModerationHandler struct {
	svc  *moderation.Service
	gate *adminauth.Gate
	log  *zap.Logger
}

func NewModerationHandler(svc *moderation.Service, gate *adminauth.Gate, log *zap.Logger) *ModerationHandler {
	return &ModerationHandler{svc: svc, gate: gate, log: log}
}

// RequirePrincipal resolves the bearer credential through the admin gate.
func (h *ModerationHandler) RequirePrincipal() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, _ := adminauth.BearerToken(c.GetHeader("Authorization"))
		p, err := h.gate.Authorize(token)
		if err != nil {
			writeError(c, h.log, err)
			return
		}
		c.Set(principalKey, p)
		c.Request = c.Request.WithContext(logger.WithActor(c.Request.Context(), p.ID))
		c.Next()
	}
}

func principal(c *gin.Context) adminauth.Principal {
	if v, ok := c.Get(principalKey); ok {
		return v.(adminauth.Principal)
	}
	return adminauth.Principal{}
}

// List returns queued records.
//
// @Summary      List pending scholarships
// @Tags         moderation
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "comma-separated statuses (default pending,needs_review)"
// @Param        limit   query     int     false  "page size, 1-100 (default 50)"
// @Success      200     {object}  ListResponse
// @Failure      400     {object}  errorBody
// @Failure      401     {object}  errorBody
// @Failure      403     {object}  errorBody
// @Router       /api/admin/pending-scholarships [get]
func (h *ModerationHandler) List(c *gin.Context) {
	var q listQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindingError("invalid query", err))
		return
	}
	statuses, err := moderation.ParseStatusList(q.Status)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	items, err := h.svc.List(c.Request.Context(), principal(c), statuses, q.Limit)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	if items == nil {
		items = []moderation.Item{}
	}
	c.JSON(http.StatusOK, ListResponse{Items: items})
}

// Approve publishes a queued record.
//
// @Summary      Approve a pending scholarship
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true   "record id (UUID)"
// @Param        body  body      decisionBody  false  "reviewer notes"
// @Success      200   {object}  DecisionResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /api/admin/pending-scholarships/{id}/approve [post]
func (h *ModerationHandler) Approve(c *gin.Context) {
	h.decide(c, h.svc.Approve)
}

// Reject withdraws a queued or published record.
//
// @Summary      Reject a pending scholarship
// @Tags         moderation
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string        true   "record id (UUID)"
// @Param        body  body      decisionBody  false  "reviewer notes"
// @Success      200   {object}  DecisionResponse
// @Failure      400   {object}  errorBody
// @Failure      403   {object}  errorBody
// @Failure      404   {object}  errorBody
// @Router       /api/admin/pending-scholarships/{id}/reject [post]
func (h *ModerationHandler) Reject(c *gin.Context) {
	h.decide(c, h.svc.Reject)
}

type decideFunc func(ctx context.Context, p adminauth.Principal, id string, notes *string) (moderation.Status, error)

func (h *ModerationHandler) decide(c *gin.Context, fn decideFunc) {
	var body decisionBody
	if err := c.ShouldBindJSON(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(c, h.log, bindingError("invalid request body", err))
		return
	}
	status, err := fn(c.Request.Context(), principal(c), c.Param("id"), body.ReviewerNotes)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, DecisionResponse{Success: true, Status: status})
}
