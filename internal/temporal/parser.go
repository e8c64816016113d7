package temporal

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	durationPattern  = regexp.MustCompile(`(?i)\bin\s*(\d+)\s*(minutes?|mins?|m|hours?|hrs?|h|days?|d)\b`)
	isoDatePattern   = regexp.MustCompile(`(?i)\b(?:on\s+)?(\d{4}-\d{2}-\d{2})\b`)
	monthDatePattern = regexp.MustCompile(`(?i)\b(?:on\s+)?(\d{1,2})(?:st|nd|rd|th)?(?:\s|[-/])?(sept|jan|feb|mar|apr|may|jun|jul|aug|sep|oct|nov|dec)\b(?:\s*(\d{4}))?`)
	tomorrowPattern  = regexp.MustCompile(`(?i)\b(?:tomorrow|tmrw|tmr)\b`)
	clockPattern     = regexp.MustCompile(`(?i)(?:\bat\b\s*)?(\d{1,2}):(\d{2})(\s*[ap]m)?\b`)
	hourOnlyPattern  = regexp.MustCompile(`(?i)(?:\bat\b\s*)?(\d{1,2})(\s*[ap]m)\b`)

	leadingToPattern    = regexp.MustCompile(`(?i)^to\s+`)
	trailingJunkPattern = regexp.MustCompile(`[\s,.;:-]+$`)
	multiSpacePattern   = regexp.MustCompile(`\s{2,}`)
)

var monthsByPrefix = map[string]time.Month{
	"jan":  time.January,
	"feb":  time.February,
	"mar":  time.March,
	"apr":  time.April,
	"may":  time.May,
	"jun":  time.June,
	"jul":  time.July,
	"aug":  time.August,
	"sep":  time.September,
	"sept": time.September,
	"oct":  time.October,
	"nov":  time.November,
	"dec":  time.December,
}

var durationUnits = map[string]time.Duration{
	"m": time.Minute,
	"h": time.Hour,
	"d": 24 * time.Hour,
}

// Parse resolves input against now. now carries the configured timezone;
// all day-boundary and defaulting arithmetic happens in that location.
//
// The note and the schedule clause are split at the last comma when text
// follows it; otherwise the whole input is scanned for schedule tokens and
// whatever remains becomes the note. Notes that themselves contain commas
// ahead of the time clause can therefore misparse; that heuristic is kept
// deliberately.
func Parse(input string, now time.Time) (Expression, error) {
	loc := now.Location()
	trimmed := strings.TrimSpace(input)

	notePortion := trimmed
	working := trimmed
	noteSeparated := false
	if idx := strings.LastIndex(trimmed, ","); idx != -1 {
		before := strings.TrimSpace(trimmed[:idx])
		after := strings.TrimSpace(trimmed[idx+1:])
		if after != "" {
			notePortion = before
			working = after
			noteSeparated = true
		}
	}

	var (
		scheduled    time.Time
		durationSet  bool
		explicitDate time.Time
		hasDate      bool
		tomorrowFlag bool
		defaulted    bool
	)

	if m := durationPattern.FindStringSubmatch(working); m != nil {
		amount, err := strconv.Atoi(m[1])
		if err != nil {
			return Expression{}, ErrUnparsableTime
		}
		unit := durationUnits[normalizeUnit(m[2])]
		scheduled = now.Add(time.Duration(amount) * unit)
		durationSet = true
		working = strings.Replace(working, m[0], "", 1)
	}

	if m := isoDatePattern.FindStringSubmatch(working); m != nil {
		day, err := time.ParseInLocation("2006-01-02", m[1], loc)
		if err != nil {
			return Expression{}, ErrUnparsableDate
		}
		explicitDate = day
		hasDate = true
		working = strings.Replace(working, m[0], "", 1)
	}

	if !hasDate {
		if m := monthDatePattern.FindStringSubmatch(working); m != nil {
			candidate, err := resolveMonthDate(m, now)
			if err != nil {
				return Expression{}, err
			}
			explicitDate = candidate
			hasDate = true
			working = strings.Replace(working, m[0], "", 1)
		}
	}

	if m := tomorrowPattern.FindString(working); m != "" {
		tomorrowFlag = true
		working = strings.Replace(working, m, "", 1)
	}

	clockMatch := clockPattern.FindStringSubmatch(working)
	var hourOnlyMatch []string
	if clockMatch == nil {
		hourOnlyMatch = hourOnlyPattern.FindStringSubmatch(working)
	}

	applyClock := func(m []string, minute int) error {
		hour, err := strconv.Atoi(m[1])
		if err != nil || hour > 23 || minute > 59 {
			return ErrUnparsableTime
		}
		suffix := strings.ToLower(strings.TrimSpace(m[len(m)-1]))
		if suffix != "" {
			if hour == 12 {
				if suffix == "am" {
					hour = 0
				}
			} else if suffix == "pm" {
				hour += 12
			}
		}
		if hour > 23 {
			return ErrUnparsableTime
		}

		base := now
		if hasDate {
			base = explicitDate
		}
		at := time.Date(base.Year(), base.Month(), base.Day(), hour, minute, 0, 0, loc)
		if !hasDate {
			if tomorrowFlag {
				at = at.AddDate(0, 0, 1)
			} else if !at.After(now) {
				at = at.AddDate(0, 0, 1)
			}
		} else if tomorrowFlag {
			at = at.AddDate(0, 0, 1)
		}
		if !durationSet {
			scheduled = at
		}
		working = strings.Replace(working, m[0], "", 1)
		return nil
	}

	if clockMatch != nil {
		minute, err := strconv.Atoi(clockMatch[2])
		if err != nil {
			return Expression{}, ErrUnparsableTime
		}
		if err := applyClock(clockMatch, minute); err != nil {
			return Expression{}, err
		}
	} else if hourOnlyMatch != nil {
		// Bare hour form always has a mandatory am/pm suffix; minutes are zero.
		if err := applyClock(hourOnlyMatch, 0); err != nil {
			return Expression{}, err
		}
	}

	if scheduled.IsZero() && hasDate {
		scheduled = time.Date(explicitDate.Year(), explicitDate.Month(), explicitDate.Day(), defaultHour, 0, 0, 0, loc)
		defaulted = true
	}
	if scheduled.IsZero() && tomorrowFlag {
		next := now.AddDate(0, 0, 1)
		scheduled = time.Date(next.Year(), next.Month(), next.Day(), defaultHour, 0, 0, 0, loc)
		defaulted = true
	}
	if scheduled.IsZero() {
		return Expression{}, ErrNoTimeFound
	}

	note := sanitizeNote(working)
	if noteSeparated {
		note = sanitizeNote(notePortion)
	}
	if note == "" {
		return Expression{}, ErrEmptyNote
	}

	if !scheduled.After(now) {
		return Expression{}, ErrInThePast
	}

	return Expression{DueAt: scheduled, Note: note, TimeDefaulted: defaulted}, nil
}

func resolveMonthDate(m []string, now time.Time) (time.Time, error) {
	loc := now.Location()
	day, err := strconv.Atoi(m[1])
	if err != nil || day < 1 || day > 31 {
		return time.Time{}, ErrUnparsableDate
	}
	month, ok := monthsByPrefix[strings.ToLower(m[2])]
	if !ok {
		return time.Time{}, ErrUnparsableDate
	}
	year := now.Year()
	yearGiven := m[3] != ""
	if yearGiven {
		year, err = strconv.Atoi(m[3])
		if err != nil {
			return time.Time{}, ErrUnparsableDate
		}
	}
	candidate := time.Date(year, month, day, 0, 0, 0, 0, loc)
	if candidate.Day() != day || candidate.Month() != month {
		// time.Date normalizes impossible days ("30 feb") into the next month.
		return time.Time{}, ErrUnparsableDate
	}
	if !yearGiven {
		startOfToday := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if candidate.Before(startOfToday) {
			candidate = time.Date(year+1, month, day, 0, 0, 0, 0, loc)
		}
	}
	return candidate, nil
}

func normalizeUnit(raw string) string {
	switch strings.ToLower(raw)[0] {
	case 'm':
		return "m"
	case 'h':
		return "h"
	default:
		return "d"
	}
}

func sanitizeNote(text string) string {
	out := multiSpacePattern.ReplaceAllString(text, " ")
	out = strings.TrimSpace(out)
	out = leadingToPattern.ReplaceAllString(out, "")
	out = trailingJunkPattern.ReplaceAllString(out, "")
	return strings.TrimSpace(out)
}
