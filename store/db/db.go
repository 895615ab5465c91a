package db

import (
	"github.com/pkg/errors"

	"github.com/zwrong/Calendar-Agent/internal/profile"
	"github.com/zwrong/Calendar-Agent/store"
	"github.com/zwrong/Calendar-Agent/store/db/caldav"
	"github.com/zwrong/Calendar-Agent/store/db/memory"
)

// NewDriver creates the calendar driver selected by the profile.
//
// caldav: the remote account (iCloud by default).
// memory: an in-process calendar that is lost on exit, for offline use.
func NewDriver(profile *profile.Profile) (store.Driver, error) {
	var driver store.Driver
	var err error

	switch profile.Store {
	case "caldav":
		driver, err = caldav.NewDriver(caldav.Config{
			ServerURL: profile.CalDAVServerURL,
			Username:  profile.CalDAVUsername,
			Password:  profile.CalDAVPassword,
			Location:  profile.Location(),
		})
	case "memory":
		driver = memory.New()
	default:
		return nil, errors.Errorf("unknown calendar driver %q: only 'caldav' and 'memory' are supported", profile.Store)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to create calendar driver")
	}
	return driver, nil
}
