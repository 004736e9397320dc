package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"stockforecast/pipeline"
)

const (
	defaultRunsLimit = 20
	maxRunsLimit     = 500
)

type RunsHandler struct {
	recorder pipeline.Recorder
}

func NewRunsHandler(recorder pipeline.Recorder) *RunsHandler {
	if recorder == nil {
		recorder = pipeline.NoopRecorder{}
	}
	return &RunsHandler{recorder: recorder}
}

// GetRuns returns the most recent recorded pipeline runs, newest first.
// Query parameters:
//   - ticker: Optional filter by ticker symbol
//   - limit: Maximum number of runs (default: 20, max: 500)
func (h *RunsHandler) GetRuns(c *gin.Context) {
	limit := defaultRunsLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n <= 0 || n > maxRunsLimit {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 500"})
			return
		}
		limit = n
	}

	runs, err := h.recorder.Recent(c.Request.Context(), strings.ToUpper(c.Query("ticker")), limit)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"runs": runs, "count": len(runs)})
}
