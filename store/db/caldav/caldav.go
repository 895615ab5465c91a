// Package caldav implements the calendar driver over CalDAV (RFC 4791).
package caldav

import (
	"context"
	"log/slog"
	"net/http"
	"path"
	"slices"
	"strings"
	"time"

	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/zwrong/Calendar-Agent/plugin/ai/cache"
	"github.com/zwrong/Calendar-Agent/plugin/ai/timeout"
	"github.com/zwrong/Calendar-Agent/store"
)

// Config holds the account and transport settings of a driver.
type Config struct {
	ServerURL string
	Username  string
	// Password is an app-specific password for iCloud accounts.
	Password string
	// HTTPClient defaults to a pooled client; it must be safe for concurrent use.
	HTTPClient *http.Client
	// Location is used for floating and all-day times.
	Location     *time.Location
	DiscoveryTTL time.Duration
}

// Driver talks to one CalDAV account. Safe for concurrent use.
type Driver struct {
	client     *caldav.Client
	httpClient *http.Client
	username   string
	loc        *time.Location
	now        func() time.Time

	discoveryTTL time.Duration
	discovered   *cache.LRU[[]*store.Calendar]
	group        singleflight.Group
}

// NewDriver creates a CalDAV driver. No request is made until the first call.
func NewDriver(cfg Config) (*Driver, error) {
	if cfg.ServerURL == "" {
		return nil, errors.New("caldav server URL is required")
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, errors.New("caldav username and password are required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.Local
	}
	ttl := cfg.DiscoveryTTL
	if ttl <= 0 {
		ttl = timeout.DiscoveryTTL
	}

	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(httpClient, cfg.Username, cfg.Password), cfg.ServerURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create caldav client")
	}
	return &Driver{
		client:       client,
		httpClient:   httpClient,
		username:     cfg.Username,
		loc:          loc,
		now:          time.Now,
		discoveryTTL: ttl,
		discovered:   cache.New[[]*store.Calendar](16, ttl),
	}, nil
}

func (d *Driver) cacheKey() string {
	return "calendars:" + d.username
}

// ListCalendars discovers the account's event calendars through the current user principal
// and its calendar home set. Results are cached for the discovery TTL.
func (d *Driver) ListCalendars(ctx context.Context) ([]*store.Calendar, error) {
	if cals, ok := d.discovered.Get(d.cacheKey()); ok {
		return cloneCalendars(cals), nil
	}

	v, err, _ := d.group.Do(d.cacheKey(), func() (any, error) {
		cals, err := d.discover(ctx)
		if err != nil {
			return nil, err
		}
		d.discovered.Set(d.cacheKey(), cals, d.discoveryTTL)
		return cals, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneCalendars(v.([]*store.Calendar)), nil
}

func (d *Driver) discover(ctx context.Context) ([]*store.Calendar, error) {
	principal, err := d.client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find current user principal")
	}
	homeSet, err := d.client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find calendar home set")
	}
	found, err := d.client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list calendars")
	}

	cals := make([]*store.Calendar, 0, len(found))
	for _, c := range found {
		if !supportsEvents(c) {
			continue
		}
		name := c.Name
		if name == "" {
			name = path.Base(strings.TrimSuffix(c.Path, "/"))
		}
		cals = append(cals, &store.Calendar{Name: name, Path: c.Path, Description: c.Description})
	}
	slog.Debug("discovered calendars", slog.String("home_set", homeSet), slog.Int("count", len(cals)))
	return cals, nil
}

func (d *Driver) ListEvents(ctx context.Context, cal *store.Calendar, start, end time.Time) ([]*store.Event, error) {
	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     "VCALENDAR",
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: "VCALENDAR",
			Comps: []caldav.CompFilter{{
				Name:  "VEVENT",
				Start: start.UTC(),
				End:   end.UTC(),
			}},
		},
	}
	objects, err := d.client.QueryCalendar(ctx, cal.Path, query)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query calendar %s", cal.Path)
	}

	var list []*store.Event
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		events, err := decodeEvents(obj.Data, start, end, d.loc)
		if err != nil {
			slog.Warn("skipping undecodable calendar object", slog.String("path", obj.Path), slog.Any("error", err))
			continue
		}
		for _, ev := range events {
			ev.Path, ev.ETag = obj.Path, obj.ETag
			ev.Calendar, ev.CalendarName = cal.Path, cal.Name
			list = append(list, ev)
		}
	}
	return list, nil
}

func (d *Driver) CreateEvent(ctx context.Context, cal *store.Calendar, ev *store.Event) error {
	objPath := objectPath(cal.Path, ev.UID)
	obj, err := d.client.PutCalendarObject(ctx, objPath, encodeEvent(ev, d.now()))
	if err != nil {
		return errors.Wrapf(err, "failed to put %s", objPath)
	}
	ev.Path = objPath
	if obj != nil {
		ev.ETag = obj.ETag
	}
	return nil
}

func (d *Driver) UpdateEvent(ctx context.Context, old, updated *store.Event) error {
	obj, err := d.client.GetCalendarObject(ctx, old.Path)
	if err != nil {
		return errors.Wrapf(err, "failed to get %s", old.Path)
	}
	if obj.Data == nil {
		return errors.Errorf("calendar object %s has no data", old.Path)
	}
	if err := applyUpdate(obj.Data, old, updated, d.now(), d.loc); err != nil {
		return err
	}

	put, err := d.client.PutCalendarObject(ctx, old.Path, obj.Data)
	if err != nil {
		return errors.Wrapf(err, "failed to put %s", old.Path)
	}
	updated.Path = old.Path
	if put != nil {
		updated.ETag = put.ETag
	}
	return nil
}

func (d *Driver) DeleteEvent(ctx context.Context, ev *store.Event) error {
	if err := d.client.RemoveAll(ctx, ev.Path); err != nil {
		return errors.Wrapf(err, "failed to delete %s", ev.Path)
	}
	return nil
}

func (d *Driver) Close() error {
	d.discovered.Clear()
	d.httpClient.CloseIdleConnections()
	return nil
}

func objectPath(calendarPath, uid string) string {
	if !strings.HasSuffix(calendarPath, "/") {
		calendarPath += "/"
	}
	return calendarPath + uid + ".ics"
}

// supportsEvents reports whether a calendar accepts VEVENT objects. Servers that omit the
// supported component set accept everything.
func supportsEvents(c caldav.Calendar) bool {
	return len(c.SupportedComponentSet) == 0 || slices.Contains(c.SupportedComponentSet, "VEVENT")
}

func cloneCalendars(cals []*store.Calendar) []*store.Calendar {
	list := make([]*store.Calendar, 0, len(cals))
	for _, c := range cals {
		cc := *c
		list = append(list, &cc)
	}
	return list
}

var _ store.Driver = (*Driver)(nil)
