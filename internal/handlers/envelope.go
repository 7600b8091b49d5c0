package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/imrishuroy/go-shoplist/internal/items"
)

// Envelope is the body of every /shopping response.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Count   *int        `json:"count,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

func ok(c *gin.Context, status int, data interface{}, message string) {
	c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

func okList(c *gin.Context, list []items.Item) {
	n := len(list)
	c.JSON(http.StatusOK, Envelope{Success: true, Data: list, Count: &n})
}

func fail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, Envelope{Success: false, Error: msg})
}

// failErr maps a service error to its status. Internal detail is only logged.
func failErr(c *gin.Context, logger *slog.Logger, err error, internalMsg string) {
	var ve *items.ValidationError
	switch {
	case errors.As(err, &ve):
		fail(c, http.StatusBadRequest, ve.Error())
	case errors.Is(err, items.ErrNotFound):
		fail(c, http.StatusNotFound, "item not found")
	default:
		logger.ErrorContext(c.Request.Context(), internalMsg,
			"request_id", requestID(c),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		fail(c, http.StatusInternalServerError, internalMsg)
	}
}
