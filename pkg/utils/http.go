package utils

import (
	"time"

	"github.com/jscience/grid/pkg/log"
	"github.com/labstack/echo/v4"
)

// Echo middleware that traces every request with its status and latency.
func HttpLogger(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)
		if err != nil {
			c.Error(err)
		}

		req := c.Request()
		log.Tracef("http - %s %s - status: %d, remote: %s, latency: %v",
			req.Method, req.URL.Path, c.Response().Status, c.RealIP(), time.Since(start))
		return nil
	}
}
