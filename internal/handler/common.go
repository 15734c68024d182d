package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// parseID reads a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}
