package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/adminauth"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/search"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

// Searcher runs one search request.
type Searcher interface {
	Search(ctx context.Context, req search.Request) (*search.Response, error)
}

type searchQuery struct {
	search.Filters
	Cursor string `form:"cursor"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=20"`
}

// SearchHandler serves the student-facing search.
type SearchHandler struct {
	engine   Searcher
	identity adminauth.IdentityVerifier
	timeout  time.Duration
	log      *zap.Logger
}

// NewSearchHandler returns a handler bounding each search by timeout.
func NewSearchHandler(engine Searcher, identity adminauth.IdentityVerifier, timeout time.Duration, log *zap.Logger) *SearchHandler {
	return &SearchHandler{engine: engine, identity: identity, timeout: timeout, log: log}
}

// Search returns one page of scholarships for the caller.
//
// @Summary      Search scholarships
// @Tags         search
// @Produce      json
// @Security     BearerAuth
// @Param        location       query     string  false  "all|local|state|national"
// @Param        amount         query     string  false  "any|1k|5k|10k"
// @Param        deadline       query     string  false  "any|month|quarter"
// @Param        competition    query     string  false  "any|low|medium|high"
// @Param        requiresEssay  query     string  false  "any|yes|no"
// @Param        cursor         query     string  false  "opaque cursor from a previous page"
// @Param        limit          query     int     false  "page size, 1-20 (default 20)"
// @Success      200            {object}  search.Response
// @Failure      400            {object}  errorBody
// @Failure      401            {object}  errorBody
// @Failure      422            {object}  errorBody
// @Failure      503            {object}  errorBody
// @Router       /api/scholarships/search [get]
func (h *SearchHandler) Search(c *gin.Context) {
	token, ok := adminauth.BearerToken(c.GetHeader("Authorization"))
	if !ok || h.identity == nil {
		writeError(c, h.log, apperr.ErrUnauthorized)
		return
	}
	userID, err := h.identity.Verify(token)
	if err != nil {
		writeError(c, h.log, apperr.ErrUnauthorized)
		return
	}

	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		writeError(c, h.log, bindingError("invalid search query", err))
		return
	}

	ctx := logger.WithActor(c.Request.Context(), userID)
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.engine.Search(ctx, search.Request{
		CallerID: userID,
		Filters:  q.Filters,
		Cursor:   q.Cursor,
		Limit:    q.Limit,
	})
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
