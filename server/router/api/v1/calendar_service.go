package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/text/language"

	"github.com/zwrong/Calendar-Agent/plugin/ai/lang"
	"github.com/zwrong/Calendar-Agent/store"
)

// ListCalendarsResponse is the reply of GET /api/v1/calendars.
type ListCalendarsResponse struct {
	Success   bool              `json:"success"`
	Calendars []*store.Calendar `json:"calendars"`
	Message   string            `json:"message"`
}

// ListCalendars returns the calendars available on the server.
// GET /api/v1/calendars?lang=en
func (s *APIV1Service) ListCalendars(c echo.Context) error {
	ctx, cancel := s.withTimeout(c)
	defer cancel()

	resp := s.Agent.Calendars(ctx, requestLanguage(c))
	calendars := []*store.Calendar{}
	if resp.Payload != nil && resp.Payload.Calendars != nil {
		calendars = resp.Payload.Calendars
	}

	status := http.StatusOK
	if !statusOK(resp) {
		status = http.StatusBadGateway
	}
	return c.JSON(status, ListCalendarsResponse{
		Success:   statusOK(resp),
		Calendars: calendars,
		Message:   resp.Text,
	})
}

// requestLanguage picks the reply language from ?lang= or Accept-Language.
func requestLanguage(c echo.Context) language.Tag {
	if l := c.QueryParam("lang"); l != "" {
		return lang.Parse(l)
	}
	if header := c.Request().Header.Get("Accept-Language"); header != "" {
		tags, _, err := language.ParseAcceptLanguage(header)
		if err == nil && len(tags) > 0 {
			return lang.Base(tags[0])
		}
	}
	return lang.Default
}
