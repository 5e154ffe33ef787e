package utils

import (
	"net/http"

	"scanndine/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Respond writes the success envelope.
func Respond(c *gin.Context, status int, message string, data any) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	if data != nil {
		body["data"] = data
	}
	c.JSON(status, body)
}

// RespondError renders err as the error envelope and aborts the chain.
// Errors outside the apperr taxonomy are logged and hidden behind a generic
// upstream failure.
func RespondError(c *gin.Context, err error) {
	e, ok := apperr.As(err)
	if !ok {
		e = apperr.Upstream("request", err)
	}
	if e.Status() >= http.StatusInternalServerError {
		logrus.WithFields(logrus.Fields{
			"request_id": c.GetString("request_id"),
			"code":       e.Code,
		}).WithError(e.Err).Error(e.Message)
	}
	c.AbortWithStatusJSON(e.Status(), gin.H{
		"success": false,
		"error":   e.Message,
		"code":    e.Code,
	})
}
