package handlers

import (
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/techhatch/techhatch-server/internal/errs"
)

// writeError translates an error kind into an HTTP response. Unknown errors
// collapse to a generic 500 so internals never leak.
func writeError(c *gin.Context, err error) {
	var tagged *errs.Error
	if !errors.As(err, &tagged) {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "internal server error"})
		return
	}

	status := http.StatusBadRequest
	switch tagged.Kind {
	case errs.KindDuplicateResource:
		status = http.StatusConflict
	case errs.KindNotFound:
		status = http.StatusNotFound
	case errs.KindUnauthorized, errs.KindRegistrationExpired:
		status = http.StatusUnauthorized
	case errs.KindRateLimited:
		status = http.StatusTooManyRequests
		retryAfter := int(math.Ceil(tagged.RetryAfter.Seconds()))
		if retryAfter > 0 {
			c.Header("Retry-After", strconv.Itoa(retryAfter))
		}
	case errs.KindNotificationFailed:
		status = http.StatusInternalServerError
	}

	c.JSON(status, gin.H{
		"success": false,
		"code":    tagged.Kind.String(),
		"error":   tagged.Error(),
	})
}
