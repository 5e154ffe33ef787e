package controller

import (
	"strconv"

	"scanndine/apperr"

	"github.com/gin-gonic/gin"
)

// paramID reads a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		return 0, apperr.Validationf("invalid %s", name)
	}
	return uint(id), nil
}

// queryInt reads an optional integer query parameter, falling back to def.
func queryInt(c *gin.Context, name string, def int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		return def
	}
	return v
}
