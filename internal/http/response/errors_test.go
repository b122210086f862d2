package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/services"
)

func TestRespondServiceErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("send: %w", services.ErrInvalidTarget), http.StatusUnprocessableEntity, "invalid_target"},
		{fmt.Errorf("claim: %w", services.ErrStoreUnavailable), http.StatusServiceUnavailable, "store_unavailable"},
		{services.ErrPreconditionFailed, http.StatusConflict, "precondition_failed"},
		{fmt.Errorf("%w: bad", services.ErrInvalidArgument), http.StatusBadRequest, "invalid_argument"},
		{services.ErrNotFound, http.StatusNotFound, "not_found"},
		{services.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
		{fmt.Errorf("%w: admin role required", services.ErrForbidden), http.StatusForbidden, "forbidden"},
		{errors.New("boom"), http.StatusInternalServerError, "internal"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondServiceError(c, tc.err)

		if rec.Code != tc.status {
			t.Fatalf("%v: status got=%d want=%d", tc.err, rec.Code, tc.status)
		}
		var env ErrorEnvelope
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Error.Code != tc.code {
			t.Fatalf("%v: code got=%q want=%q", tc.err, env.Error.Code, tc.code)
		}
		if tc.status == http.StatusServiceUnavailable && rec.Header().Get("Retry-After") == "" {
			t.Fatalf("missing Retry-After on 503")
		}
	}
}

func TestRespondFireTreatsDuplicateAsSuccess(t *testing.T) {
	gin.SetMode(gin.TestMode)
	for _, err := range []error{
		nil,
		services.ErrAlreadyFired,
		&services.PartialEffectError{EventID: "e", Warnings: []string{"notification: down"}},
	} {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		RespondFire(c, services.FireResult{EventID: "e"}, err)
		if rec.Code != http.StatusOK {
			t.Fatalf("%v: status got=%d want=200", err, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	RespondFire(c, services.FireResult{}, services.ErrPreconditionFailed)
	if rec.Code != http.StatusConflict {
		t.Fatalf("status got=%d want=409", rec.Code)
	}
}
