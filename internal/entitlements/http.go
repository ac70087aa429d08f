package entitlements

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/kariyerai/backend/pkg/response"
)

// RespondError writes the response for a metering error and reports whether err was one.
// Denials become 403 with required/available; upstream failures become a generic 502.
func RespondError(c *gin.Context, err error) bool {
	if ib, ok := IsDenied(err); ok {
		response.InsufficientBalance(c, string(ib.Resource), ib.Required, ib.Available)
		return true
	}
	var up *UpstreamError
	if errors.As(err, &up) {
		response.BadGateway(c, "the AI service is unavailable, please try again later")
		return true
	}
	return false
}
