package v1

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/zwrong/Calendar-Agent/plugin/ai/agent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	apierrors "github.com/zwrong/Calendar-Agent/server/internal/errors"
	"github.com/zwrong/Calendar-Agent/server/internal/observability"
)

// CommandRequest is the body of POST /api/v1/command.
type CommandRequest struct {
	Command string `json:"command"`
	// Calendar selects the calendar for this and later turns of the session.
	Calendar  string `json:"calendar,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// CommandResponse is the reply of POST /api/v1/command.
type CommandResponse struct {
	Success   bool           `json:"success"`
	Status    agent.Status   `json:"status"`
	Message   string         `json:"message"`
	Payload   *agent.Payload `json:"payload,omitempty"`
	SessionID string         `json:"session_id"`
}

// Command runs one natural-language command in its conversation session.
// POST /api/v1/command
func (s *APIV1Service) Command(c echo.Context) error {
	var req CommandRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, apierrors.InvalidArgument("invalid request body"))
	}
	req.Command = strings.TrimSpace(req.Command)
	if req.Command == "" {
		return errorJSON(c, apierrors.InvalidArgument("command is required"))
	}

	ctx, cancel := s.withTimeout(c)
	defer cancel()

	sess, err := s.Sessions.Recover(ctx, req.SessionID)
	if err != nil {
		return errorJSON(c, apierrors.SessionFailed(err))
	}
	if req.Calendar != "" {
		sess.Calendar = req.Calendar
	}

	reqCtx, ok := observability.FromContext(c.Request().Context())
	if ok {
		reqCtx.SessionID = sess.ID
		reqCtx.Debug("command received",
			slog.Int(observability.LogFieldMessageLen, len([]rune(req.Command))),
			slog.String("language", lang.Detect(req.Command).String()),
		)
	}

	resp := s.Agent.Handle(ctx, req.Command, sess)
	if err := ctx.Err(); err != nil {
		if apiErr := apierrors.FromContext(err); apiErr != nil {
			return errorJSON(c, apiErr)
		}
	}

	if err := s.Sessions.Finish(ctx, sess, req.Command, resp.Text); err != nil {
		// The reply is still valid; only the conversation state is lost.
		if ok {
			reqCtx.Warn("failed to save session", slog.String("error", err.Error()))
		}
	}
	if ok {
		reqCtx.Info("command handled",
			slog.String(observability.LogFieldStatus, string(resp.Status)),
			slog.Int64(observability.LogFieldDuration, reqCtx.DurationMs()),
		)
	}

	return c.JSON(http.StatusOK, CommandResponse{
		Success:   statusOK(resp),
		Status:    resp.Status,
		Message:   resp.Text,
		Payload:   resp.Payload,
		SessionID: sess.ID,
	})
}
