package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthDay is a calendar date without a year. Targets and the exclusion
// calendar are year-less, matching how the venue phrases its markets.
type MonthDay struct {
	Month time.Month
	Day   int
}

// MonthDayOf returns the UTC month and day of t.
func MonthDayOf(t time.Time) MonthDay {
	u := t.UTC()
	return MonthDay{Month: u.Month(), Day: u.Day()}
}

// ParseMonthDay parses "MM-DD" (for example "09-06"). Each part is one or
// two digits; anything else, trailing text included, is rejected.
func ParseMonthDay(s string) (MonthDay, error) {
	parts := strings.Split(s, "-")
	if len(parts) != 2 {
		return MonthDay{}, fmt.Errorf("%w: %q: want MM-DD", ErrInvalidDate, s)
	}
	m, err := parseDatePart(parts[0])
	if err != nil {
		return MonthDay{}, fmt.Errorf("%w: %q: month: %v", ErrInvalidDate, s, err)
	}
	d, err := parseDatePart(parts[1])
	if err != nil {
		return MonthDay{}, fmt.Errorf("%w: %q: day: %v", ErrInvalidDate, s, err)
	}
	md := MonthDay{Month: time.Month(m), Day: d}
	if err := md.Validate(); err != nil {
		return MonthDay{}, err
	}
	return md, nil
}

func parseDatePart(p string) (int, error) {
	if len(p) == 0 || len(p) > 2 {
		return 0, fmt.Errorf("%q is not one or two digits", p)
	}
	for _, r := range p {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not one or two digits", p)
		}
	}
	return strconv.Atoi(p)
}

// Validate checks that the month is 1..12 and the day 1..31.
func (md MonthDay) Validate() error {
	if md.Month < time.January || md.Month > time.December {
		return fmt.Errorf("%w: month %d", ErrInvalidDate, md.Month)
	}
	if md.Day < 1 || md.Day > 31 {
		return fmt.Errorf("%w: day %d", ErrInvalidDate, md.Day)
	}
	return nil
}

// Before reports whether md falls strictly earlier in the year than other.
func (md MonthDay) Before(other MonthDay) bool {
	if md.Month != other.Month {
		return md.Month < other.Month
	}
	return md.Day < other.Day
}

func (md MonthDay) String() string {
	return fmt.Sprintf("%02d-%02d", int(md.Month), md.Day)
}

// MarshalText encodes md as "MM-DD".
func (md MonthDay) MarshalText() ([]byte, error) {
	return []byte(md.String()), nil
}

// UnmarshalText decodes "MM-DD", so exclusion dates can be written as plain
// strings in TOML.
func (md *MonthDay) UnmarshalText(text []byte) error {
	parsed, err := ParseMonthDay(string(text))
	if err != nil {
		return err
	}
	*md = parsed
	return nil
}

// TargetIncident is one wagerable contract tied to a calendar date and an
// incident class. It is immutable once created.
type TargetIncident struct {
	ContractID   string       `json:"contract_id"`
	Month        time.Month   `json:"month"`
	Day          int          `json:"day"`
	IncidentType IncidentType `json:"incident_type"`
}

// Date returns the target's trigger date.
func (t TargetIncident) Date() MonthDay {
	return MonthDay{Month: t.Month, Day: t.Day}
}

// IsPast reports whether the target's date has fully elapsed relative to
// today.
func (t TargetIncident) IsPast(today MonthDay) bool {
	return t.Date().Before(today)
}

// Matches reports whether the target is for today and for the given
// incident class.
func (t TargetIncident) Matches(today MonthDay, incidentType IncidentType) bool {
	return t.Month == today.Month && t.Day == today.Day && t.IncidentType == incidentType
}
