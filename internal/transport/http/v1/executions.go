package v1

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/promptbench/engine/internal/domain"
)

// RunExecution runs one conversation execution synchronously.
// POST /internal/v1/executions
func (h *Handler) RunExecution(c echo.Context) error {
	var params domain.ExecutionParams
	if err := c.Bind(&params); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if params.FirstUserMessage == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "first_user_message is required"})
	}
	switch params.Protocol {
	case domain.ProtocolStateless, domain.ProtocolContinuation, domain.ProtocolThreadRun:
	case "":
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "protocol is required"})
	default:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "unknown protocol: " + string(params.Protocol)})
	}

	ctx := c.Request().Context()

	result, err := h.runner.Execute(ctx, params)
	if result == nil {
		// The execution could not be assembled at all (e.g. a thread/run
		// request without an assistant id).
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	// An execution that ran to a terminal state is reported as-is; the
	// result's status distinguishes error transcripts for the caller.
	return c.JSON(http.StatusOK, result.ToMap())
}

// GetExecution retrieves a stored execution result.
// GET /internal/v1/executions/:execution_id
func (h *Handler) GetExecution(c echo.Context) error {
	executionID := c.Param("execution_id")

	ctx := c.Request().Context()

	result, err := h.store.GetResult(ctx, executionID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
	if result == nil {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "execution not found"})
	}

	return c.JSON(http.StatusOK, result.ToMap())
}

// ListExecutions lists stored executions, newest first.
// GET /internal/v1/executions
func (h *Handler) ListExecutions(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	ctx := c.Request().Context()

	executions, err := h.store.ListExecutions(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"executions": executions,
	})
}
