package middleware

import (
	"log"
	"net/http"
	"runtime/debug"

	"github.com/labstack/echo/v4"
)

// Recover turns handler panics into a 500 response instead of
// tearing down the connection.
func Recover() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				req := c.Request()
				log.Printf("http: panic serving %s %s: %v\n%s", req.Method, req.URL.Path, r, debug.Stack())
				if !c.Response().Committed {
					_ = c.JSON(http.StatusInternalServerError, echo.Map{
						"status": http.StatusInternalServerError, "message": "Internal Server Error",
					})
				}
			}()
			return next(c)
		}
	}
}
