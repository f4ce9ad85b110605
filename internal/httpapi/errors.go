package httpapi

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/pkg/logger"
)

type errorBody struct {
	Error  string         `json:"error"`
	Issues []apperr.Issue `json:"issues,omitempty"`
}

func init() {
	// Report json/form names in validation issues instead of Go field names.
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	}
}

// writeError maps err onto the uniform error body. Server-side failures are
// logged with the request id and returned without detail.
func writeError(c *gin.Context, log *zap.Logger, err error) {
	status := apperr.Status(err)
	if status >= http.StatusInternalServerError {
		logger.WithContext(c.Request.Context(), log).Error("request failed",
			zap.Int("status", status),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, errorBody{
		Error:  apperr.PublicMessage(err),
		Issues: apperr.Issues(err),
	})
}

// bindingError converts a gin binding failure into a ValidationError.
func bindingError(msg string, err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		issues := make([]apperr.Issue, 0, len(verrs))
		for _, fe := range verrs {
			issues = append(issues, apperr.Issue{Field: fe.Field(), Message: describe(fe)})
		}
		return &apperr.ValidationError{Msg: msg, Issues: issues}
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return &apperr.ValidationError{Msg: msg, Issues: []apperr.Issue{{Field: "body", Message: "truncated JSON"}}}
	}
	return &apperr.ValidationError{Msg: msg, Issues: []apperr.Issue{{Field: "body", Message: err.Error()}}}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "oneof":
		return "must be one of: " + strings.ReplaceAll(fe.Param(), " ", ", ")
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "uuid":
		return "must be a UUID"
	}
	return "is invalid"
}
