package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/Brogede16/cinemateket-print-program/app/program"
	"github.com/Brogede16/cinemateket-print-program/app/proxy"
)

func NewHandler(aggregator ProgramBuilder, upstreamProxy UpstreamProxy,
	limiter ClientLimiter, staticDir string) *Handler {
	return &Handler{
		aggregator: aggregator,
		proxy:      upstreamProxy,
		limiter:    limiter,
		staticDir:  staticDir,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

func (h *Handler) GetIndex(c *gin.Context) {
	c.File(filepath.Join(h.staticDir, "index.html"))
}

func (h *Handler) GetProgram(c *gin.Context) {
	mode := c.DefaultQuery("mode", program.ModeAll)
	from := c.Query("from")
	to := c.Query("to")

	resp, err := h.buildProgram(c, mode, from, to)
	if err != nil {
		if errors.Is(err, program.ErrInvalidScope) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		slog.Error("Program aggregation failed", "mode", mode, "from", from, "to", to, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal"})
		return
	}

	c.JSON(http.StatusOK, resp)
}

// buildProgram confines any pipeline panic to a generic internal-error
// response instead of letting it propagate.
func (h *Handler) buildProgram(c *gin.Context, mode, from, to string) (resp *program.Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("program pipeline panic: %v", r)
		}
	}()
	return h.aggregator.Build(c.Request.Context(), mode, from, to)
}

func (h *Handler) GetFetch(c *gin.Context) {
	// the rate limit applies before any allowlist or cache logic
	if !h.limiter.Allow(c.ClientIP()) {
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}

	rawurl := c.Query("url")
	if rawurl == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing 'url' parameter"})
		return
	}

	result, err := h.proxy.Fetch(c.Request.Context(), rawurl)
	if err != nil {
		switch {
		case errors.Is(err, proxy.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "target not allowed"})
		case errors.Is(err, proxy.ErrRedirectLoop):
			c.JSON(http.StatusLoopDetected, gin.H{"error": "too many redirects"})
		default:
			slog.Error("Proxy upstream failure", "url", rawurl, "error", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream failure"})
		}
		return
	}

	contentType := result.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Data(result.Status, contentType, result.Body)
}
