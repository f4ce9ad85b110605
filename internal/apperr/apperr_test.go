package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/zhangyaxin742/magpie-scholarship-apply-sub001/internal/apperr"
)

type teapot struct{}

func (teapot) Error() string   { return "short and stout" }
func (teapot) HTTPStatus() int { return http.StatusTeapot }

func TestStatus(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, http.StatusOK},
		{"unauthorized", apperr.ErrUnauthorized, http.StatusUnauthorized},
		{"forbidden wrapped", fmt.Errorf("gate: %w", apperr.ErrForbidden), http.StatusForbidden},
		{"not found wrapped", fmt.Errorf("item x: %w", apperr.ErrNotFound), http.StatusNotFound},
		{"conflict", apperr.ErrConflict, http.StatusConflict},
		{"validation", apperr.Invalid("limit", "too big"), http.StatusBadRequest},
		{"upstream", apperr.ErrUpstreamUnavailable, http.StatusServiceUnavailable},
		{"status coder", teapot{}, http.StatusTeapot},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if got := apperr.Status(c.err); got != c.want {
				t.Errorf("Status(%v) = %d, want %d", c.err, got, c.want)
			}
		})
	}
}

func TestPublicMessage_HidesInternals(t *testing.T) {
	err := fmt.Errorf("pgx: connection refused to 10.0.0.3: %w", errors.New("dial tcp"))
	if got := apperr.PublicMessage(err); got != "internal server error" {
		t.Errorf("PublicMessage = %q, want generic message", got)
	}
}

func TestValidationError_Issues(t *testing.T) {
	err := fmt.Errorf("bind: %w", &apperr.ValidationError{
		Msg:    "invalid query",
		Issues: []apperr.Issue{{Field: "limit", Message: "must be at most 100"}},
	})

	issues := apperr.Issues(err)
	if len(issues) != 1 || issues[0].Field != "limit" {
		t.Fatalf("Issues = %+v", issues)
	}
	if got := apperr.PublicMessage(err); got != "invalid query" {
		t.Errorf("PublicMessage = %q, want %q", got, "invalid query")
	}
	if apperr.Issues(errors.New("plain")) != nil {
		t.Error("plain errors carry no issues")
	}
}
