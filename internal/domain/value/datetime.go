package value

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// defaultLocation is used to interpret date/time values that carry no
// timezone designator. It is set once at PDP startup (see
// SetDefaultLocation) and never mutated afterward, so reading it during
// concurrent evaluations is safe.
var defaultLocation = time.UTC

// SetDefaultLocation configures the timezone used to interpret date/time
// values lacking an explicit zone. Must be called before the PDP begins
// evaluating requests; it is not safe to call concurrently with Evaluate.
func SetDefaultLocation(loc *time.Location) {
	if loc != nil {
		defaultLocation = loc
	}
}

// DateTimeVal is the canonical payload for the dateTime dataType: an
// absolute instant, always carrying a zone because parsing a dateTime
// literal without a timezone designator is a syntax error.
type DateTimeVal struct {
	T time.Time
}

// DateVal is the canonical payload for date: a calendar date, which may
// or may not carry an explicit timezone.
type DateVal struct {
	Year, Month, Day int
	HasZone          bool
	Zone             *time.Location
}

// TimeVal is the canonical payload for time: a time-of-day, which may or
// may not carry an explicit timezone.
type TimeVal struct {
	Hour, Min, Sec, Nanosec int
	HasZone                 bool
	Zone                    *time.Location
}

// instant resolves a DateVal to the absolute time.Time used for ordering
// and equality, applying defaultLocation when the value has no zone.
func (d DateVal) instant() time.Time {
	loc := d.Zone
	if !d.HasZone {
		loc = defaultLocation
	}
	return time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, loc)
}

func (t TimeVal) instant() time.Time {
	loc := t.Zone
	if !t.HasZone {
		loc = defaultLocation
	}
	return time.Date(0, 1, 1, t.Hour, t.Min, t.Sec, t.Nanosec, loc)
}

var dateTimePattern = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})$`)
var datePattern = regexp.MustCompile(`^(-?\d{4,})-(\d{2})-(\d{2})(Z|[+-]\d{2}:\d{2})?$`)
var timePattern = regexp.MustCompile(`^(\d{2}):(\d{2}):(\d{2})(\.\d+)?(Z|[+-]\d{2}:\d{2})?$`)

func init() {
	Register(&DataType{
		URI: TypeDateTime,
		Parse: func(lit string) (Payload, error) {
			lit = strings.TrimSpace(lit)
			if !dateTimePattern.MatchString(lit) {
				return nil, errSyntax("dateTime (missing or malformed timezone designator)", lit)
			}
			t, err := time.Parse(time.RFC3339Nano, lit)
			if err != nil {
				return nil, errSyntaxWrap("dateTime", lit, err)
			}
			return DateTimeVal{T: t}, nil
		},
		Format: func(p Payload) string { return p.(DateTimeVal).T.Format(time.RFC3339Nano) },
		Equal: func(a, b Payload) bool {
			return a.(DateTimeVal).T.Equal(b.(DateTimeVal).T)
		},
		Less: func(a, b Payload) (bool, error) {
			return a.(DateTimeVal).T.Before(b.(DateTimeVal).T), nil
		},
	})

	Register(&DataType{
		URI: TypeDate,
		Parse: func(lit string) (Payload, error) {
			lit = strings.TrimSpace(lit)
			m := datePattern.FindStringSubmatch(lit)
			if m == nil {
				return nil, errSyntax("date", lit)
			}
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			d := DateVal{Year: year, Month: month, Day: day}
			if m[4] != "" {
				loc, err := parseZone(m[4])
				if err != nil {
					return nil, err
				}
				d.HasZone, d.Zone = true, loc
			}
			return d, nil
		},
		Format: func(p Payload) string {
			d := p.(DateVal)
			s := fmt.Sprintf("%04d-%02d-%02d", d.Year, d.Month, d.Day)
			if d.HasZone {
				s += formatZone(d.Zone)
			}
			return s
		},
		Equal: func(a, b Payload) bool {
			return a.(DateVal).instant().Equal(b.(DateVal).instant())
		},
		Less: func(a, b Payload) (bool, error) {
			return a.(DateVal).instant().Before(b.(DateVal).instant()), nil
		},
	})

	Register(&DataType{
		URI: TypeTime,
		Parse: func(lit string) (Payload, error) {
			lit = strings.TrimSpace(lit)
			m := timePattern.FindStringSubmatch(lit)
			if m == nil {
				return nil, errSyntax("time", lit)
			}
			hour, _ := strconv.Atoi(m[1])
			min, _ := strconv.Atoi(m[2])
			sec, _ := strconv.Atoi(m[3])
			ns := 0
			if m[4] != "" {
				frac := m[4][1:]
				for len(frac) < 9 {
					frac += "0"
				}
				ns, _ = strconv.Atoi(frac[:9])
			}
			t := TimeVal{Hour: hour, Min: min, Sec: sec, Nanosec: ns}
			if m[5] != "" {
				loc, err := parseZone(m[5])
				if err != nil {
					return nil, err
				}
				t.HasZone, t.Zone = true, loc
			}
			return t, nil
		},
		Format: func(p Payload) string {
			t := p.(TimeVal)
			s := fmt.Sprintf("%02d:%02d:%02d", t.Hour, t.Min, t.Sec)
			if t.Nanosec > 0 {
				s += strings.TrimRight(fmt.Sprintf(".%09d", t.Nanosec), "0")
			}
			if t.HasZone {
				s += formatZone(t.Zone)
			}
			return s
		},
		Equal: func(a, b Payload) bool {
			return a.(TimeVal).instant().Equal(b.(TimeVal).instant())
		},
		Less: func(a, b Payload) (bool, error) {
			return a.(TimeVal).instant().Before(b.(TimeVal).instant()), nil
		},
	})
}

func parseZone(designator string) (*time.Location, error) {
	if designator == "Z" {
		return time.UTC, nil
	}
	sign := 1
	s := designator
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return nil, errSyntax("timezone", designator)
	}
	h, err1 := strconv.Atoi(parts[0])
	m, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return nil, errSyntax("timezone", designator)
	}
	offset := sign * (h*3600 + m*60)
	return time.FixedZone(designator, offset), nil
}

func formatZone(loc *time.Location) string {
	if loc == time.UTC {
		return "Z"
	}
	// parseZone only ever yields fixed zones, so any reference instant
	// reports the same offset.
	_, offset := time.Date(2000, 1, 1, 0, 0, 0, 0, loc).Zone()
	sign := "+"
	if offset < 0 {
		sign = "-"
		offset = -offset
	}
	return fmt.Sprintf("%s%02d:%02d", sign, offset/3600, (offset%3600)/60)
}
