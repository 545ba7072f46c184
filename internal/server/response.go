package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Response is the envelope of every API answer.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

func fail(c *gin.Context, code int, message string) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message})
}

// failWith is fail with a payload, used when a partial result is still useful.
func failWith(c *gin.Context, code int, message string, data any) {
	c.AbortWithStatusJSON(code, Response{Code: code, Message: message, Data: data})
}
