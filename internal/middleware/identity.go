package middleware

// identity.go holds helpers shared across middleware files. The rate
// limiter and cache key strategies use userID to partition keys per
// authenticated user.

import (
	"fmt"

	"github.com/labstack/echo/v4"
)

// userID extracts a user identifier from the request context. It returns
// "guest" when no user is authenticated. JWTAuth stores the raw "sub"
// claim, which the JWT library decodes as a float64.
func userID(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case nil:
		return "guest"
	case string:
		if v == "" {
			return "guest"
		}
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
