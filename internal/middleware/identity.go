package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// userKey identifies the caller for rate-limit keys. Requests that did not
// pass JWTAuth are "anon".
func userKey(c echo.Context) string {
	if id, ok := c.Get(CtxUserID).(uint64); ok && id != 0 {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
