package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/observer-backend/internal/platform/apierr"
	"github.com/yungbote/observer-backend/internal/services"
)

// retryAfterSeconds is sent with every 503.
const retryAfterSeconds = "2"

// Classify maps a service error onto an HTTP status and error code.
func Classify(err error) *apierr.Error {
	var ae *apierr.Error
	switch {
	case err == nil:
		return nil
	case errors.As(err, &ae):
		return ae
	case errors.Is(err, services.ErrUnauthorized):
		return apierr.Unauthorized(err)
	case errors.Is(err, services.ErrForbidden):
		return apierr.Forbidden(err)
	case errors.Is(err, services.ErrInvalidTarget):
		return apierr.InvalidTarget(err)
	case errors.Is(err, services.ErrStoreUnavailable):
		return apierr.Unavailable(err)
	case errors.Is(err, services.ErrPreconditionFailed):
		return apierr.Conflict(err)
	case errors.Is(err, services.ErrInvalidArgument):
		return apierr.BadRequest(err)
	case errors.Is(err, services.ErrNotFound):
		return apierr.NotFound(err)
	}
	return apierr.New(http.StatusInternalServerError, "internal", errors.New("internal error"))
}

func RespondServiceError(c *gin.Context, err error) {
	ae := Classify(err)
	if ae.Retryable() {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if ae.Status >= 500 {
		_ = c.Error(err)
	}
	RespondError(c, ae.Status, ae.Code, ae.Err)
}

// RespondFire writes an event outcome. A duplicate fire and a fire with
// partial effects are both successful responses; the payload carries
// fired_now and warnings.
func RespondFire(c *gin.Context, payload any, err error) {
	if err != nil && !errors.Is(err, services.ErrAlreadyFired) && !errors.Is(err, services.ErrPartialEffect) {
		RespondServiceError(c, err)
		return
	}
	RespondOK(c, payload)
}
