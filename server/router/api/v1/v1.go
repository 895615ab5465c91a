package v1

import (
	"context"
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/zwrong/Calendar-Agent/internal/profile"
	"github.com/zwrong/Calendar-Agent/plugin/ai/agent"
	"github.com/zwrong/Calendar-Agent/plugin/ai/metrics"
	"github.com/zwrong/Calendar-Agent/plugin/ai/session"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
	apierrors "github.com/zwrong/Calendar-Agent/server/internal/errors"
	"github.com/zwrong/Calendar-Agent/server/internal/observability"
)

// CommandHandler is the agent surface served over HTTP.
type CommandHandler interface {
	Handle(ctx context.Context, utterance string, sess *session.Session) *agent.Response
	Calendars(ctx context.Context, tag language.Tag) *agent.Response
}

type APIV1Service struct {
	Profile  *profile.Profile
	Agent    CommandHandler
	Sessions *session.Recovery
	Metrics  metrics.MetricsService

	requestTimeout time.Duration
}

func NewAPIV1Service(profile *profile.Profile, handler CommandHandler, sessions session.SessionService, m metrics.MetricsService) *APIV1Service {
	if m == nil {
		m = metrics.Nop{}
	}
	return &APIV1Service{
		Profile:        profile,
		Agent:          handler,
		Sessions:       session.NewRecovery(sessions),
		Metrics:        m,
		requestTimeout: timeout.RequestTimeout,
	}
}

// RegisterRoutes registers the v1 API under /api/v1.
func (s *APIV1Service) RegisterRoutes(echoServer *echo.Echo, middlewares ...echo.MiddlewareFunc) {
	g := echoServer.Group("/api/v1", middlewares...)
	g.POST("/command", s.Command)
	g.GET("/calendars", s.ListCalendars)
	g.GET("/system/metrics/overview", s.GetMetricsOverview)
}

// errorJSON writes an APIError as the standard failure envelope.
func errorJSON(c echo.Context, err *apierrors.APIError) error {
	if reqCtx, ok := observability.FromContext(c.Request().Context()); ok {
		attrs := []slog.Attr{slog.String(observability.LogFieldErrorCode, string(err.Code))}
		if err.Cause != nil {
			reqCtx.Error("request failed", err, attrs...)
		} else {
			reqCtx.Warn("request rejected", append(attrs, slog.String("message", err.Message))...)
		}
	}
	return c.JSON(err.HTTPStatus(), map[string]any{
		"success": false,
		"code":    err.Code,
		"message": err.Message,
	})
}

// withTimeout bounds one request end to end.
func (s *APIV1Service) withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
	d := s.requestTimeout
	if d <= 0 {
		d = timeout.RequestTimeout
	}
	return context.WithTimeout(c.Request().Context(), d)
}

// statusOK maps the agent status to the success flag of the envelope.
func statusOK(resp *agent.Response) bool {
	return resp.Status == agent.StatusSuccess
}
