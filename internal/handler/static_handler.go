package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	appErrors "github.com/noah-isme/changeboard-api/pkg/errors"
	"github.com/noah-isme/changeboard-api/pkg/response"
)

type assetResolver interface {
	Resolve(urlPath string) (string, bool)
}

// StaticHandler serves the dashboard bundle for routes the API does not own.
type StaticHandler struct {
	assets assetResolver
}

// NewStaticHandler constructs the handler. A nil resolver makes every unmatched route a 404.
func NewStaticHandler(assets assetResolver) *StaticHandler {
	return &StaticHandler{assets: assets}
}

// NoRoute is registered as the router fallback.
func (h *StaticHandler) NoRoute(c *gin.Context) {
	path := c.Request.URL.Path
	if h.assets == nil || strings.HasPrefix(path, "/api/") ||
		(c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead) {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	file, ok := h.assets.Resolve(path)
	if !ok {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	c.File(file)
}
