package api

import (
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"mechinsight-backend/internal/auth"
	"mechinsight-backend/internal/store"
)

// Handler holds shared dependencies for API handlers.
type Handler struct {
	store   store.Store
	tokens  *auth.TokenCodec
	webpush *webpush.Options
}

// NewHandler creates a new API handler.
func NewHandler(s store.Store, codec *auth.TokenCodec, webpushOptions *webpush.Options) *Handler {
	return &Handler{
		store:   s,
		tokens:  codec,
		webpush: webpushOptions,
	}
}

// Root handles GET / with the original greeting.
func (h *Handler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, "Hello there!")
}
