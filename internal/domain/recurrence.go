package domain

import (
	"fmt"
	"strings"
	"time"
)

type RepeatType string

const (
	RepeatNone    RepeatType = "NONE"
	RepeatDaily   RepeatType = "DAILY"
	RepeatWeekly  RepeatType = "WEEKLY"
	RepeatMonthly RepeatType = "MONTHLY"
	RepeatYearly  RepeatType = "YEARLY"
)

// DefaultMaxOccurrences caps a single event's expansion. Hitting the cap
// is not an error: the result is simply the first N repeats.
const DefaultMaxOccurrences = 100

// defaultRepeatHorizonDays is substituted for a missing repeat_until. It
// only bounds generation and is never persisted.
const defaultRepeatHorizonDays = 365

type MalformedRuleError struct {
	Reason string
	Tag    string
}

func (e *MalformedRuleError) Error() string {
	if e.Tag != "" {
		return fmt.Sprintf("%s: %q", e.Reason, e.Tag)
	}
	return e.Reason
}

var weekdayByTag = map[string]time.Weekday{
	"MON": time.Monday,
	"TUE": time.Tuesday,
	"WED": time.Wednesday,
	"THU": time.Thursday,
	"FRI": time.Friday,
	"SAT": time.Saturday,
	"SUN": time.Sunday,
}

func ParseRepeatType(s string) (RepeatType, error) {
	switch RepeatType(strings.ToUpper(strings.TrimSpace(s))) {
	case RepeatNone:
		return RepeatNone, nil
	case RepeatDaily:
		return RepeatDaily, nil
	case RepeatWeekly:
		return RepeatWeekly, nil
	case RepeatMonthly:
		return RepeatMonthly, nil
	case RepeatYearly:
		return RepeatYearly, nil
	default:
		return "", &MalformedRuleError{Reason: "unrecognized repeat type", Tag: s}
	}
}

// ParseRepeatDays resolves MON..SUN tags, deduplicating while keeping
// first-seen order. An unknown tag fails naming the offending value.
func ParseRepeatDays(tags []string) ([]time.Weekday, error) {
	out := make([]time.Weekday, 0, len(tags))
	seen := make(map[time.Weekday]struct{}, len(tags))
	for _, tag := range tags {
		wd, ok := weekdayByTag[strings.ToUpper(strings.TrimSpace(tag))]
		if !ok {
			return nil, &MalformedRuleError{Reason: "unrecognized weekday tag", Tag: tag}
		}
		if _, dup := seen[wd]; dup {
			continue
		}
		seen[wd] = struct{}{}
		out = append(out, wd)
	}
	return out, nil
}

// RepeatRule describes how an event repeats. Days is meaningful only for
// WEEKLY; an empty Days means "same weekday as the start, every week". A
// nil Until bounds generation at start plus one year.
type RepeatRule struct {
	Type  RepeatType
	Days  []string
	Until *time.Time
}

func (r RepeatRule) Validate() error {
	switch r.Type {
	case RepeatNone:
		// NONE ignores the remaining fields rather than rejecting them.
		return nil
	case RepeatWeekly:
		_, err := ParseRepeatDays(r.Days)
		return err
	case RepeatDaily, RepeatMonthly, RepeatYearly:
		if len(r.Days) > 0 {
			return &MalformedRuleError{Reason: "repeat_days is only valid for WEEKLY rules"}
		}
		return nil
	default:
		return &MalformedRuleError{Reason: "unrecognized repeat type", Tag: string(r.Type)}
	}
}

// GenerateOccurrences produces the ordered repeat instants for an event
// starting at start. The base start itself is never part of the result;
// occurrences are the additional instances beyond the original. The
// function is pure: identical inputs yield identical output.
func GenerateOccurrences(start time.Time, rule RepeatRule, maxOccurrences int) ([]time.Time, error) {
	if err := rule.Validate(); err != nil {
		return nil, err
	}
	if rule.Type == RepeatNone {
		return nil, nil
	}
	if maxOccurrences <= 0 {
		maxOccurrences = DefaultMaxOccurrences
	}

	until := start.AddDate(0, 0, defaultRepeatHorizonDays)
	if rule.Until != nil {
		until = *rule.Until
	}
	if until.Before(start) {
		return nil, nil
	}

	emitted := make([]time.Time, 0, 16)

	switch rule.Type {
	case RepeatDaily:
		for cursor := start; !cursor.After(until) && len(emitted) < maxOccurrences; cursor = cursor.AddDate(0, 0, 1) {
			emitted = append(emitted, cursor)
		}

	case RepeatWeekly:
		days, err := ParseRepeatDays(rule.Days)
		if err != nil {
			return nil, err
		}
		if len(days) == 0 {
			for cursor := start; !cursor.After(until) && len(emitted) < maxOccurrences; cursor = cursor.AddDate(0, 0, 7) {
				emitted = append(emitted, cursor)
			}
			break
		}
		match := make(map[time.Weekday]struct{}, len(days))
		for _, d := range days {
			match[d] = struct{}{}
		}
		// Scan day by day instead of jumping weeks so several weekday
		// matches within one week are all captured.
		for cursor := start; !cursor.After(until) && len(emitted) < maxOccurrences; cursor = cursor.AddDate(0, 0, 1) {
			if _, ok := match[cursor.Weekday()]; ok {
				emitted = append(emitted, cursor)
			}
		}

	case RepeatMonthly:
		for i := 0; len(emitted) < maxOccurrences; i++ {
			cursor := addMonthsClamped(start, i)
			if cursor.After(until) {
				break
			}
			emitted = append(emitted, cursor)
		}

	case RepeatYearly:
		for i := 0; len(emitted) < maxOccurrences; i++ {
			cursor := addYearsClamped(start, i)
			if cursor.After(until) {
				break
			}
			emitted = append(emitted, cursor)
		}
	}

	out := make([]time.Time, 0, len(emitted))
	for _, t := range emitted {
		if t.Equal(start) {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

// addMonthsClamped advances by whole calendar months, keeping the
// start's day-of-month and clamping to the end of shorter months. The
// clamp is anchored on the original day, so a Jan 31 start yields
// Feb 28 and then Mar 31 rather than drifting to the 28th for good.
func addMonthsClamped(start time.Time, months int) time.Time {
	y, m, _ := start.Date()
	anchor := time.Date(y, m+time.Month(months), 1, 0, 0, 0, 0, start.Location())
	day := start.Day()
	if last := daysInMonth(anchor.Year(), anchor.Month()); day > last {
		day = last
	}
	return time.Date(
		anchor.Year(), anchor.Month(), day,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(),
		start.Location(),
	)
}

// addYearsClamped steps whole years on the same month/day, clamping a
// Feb 29 start to Feb 28 in common years.
func addYearsClamped(start time.Time, years int) time.Time {
	day := start.Day()
	if last := daysInMonth(start.Year()+years, start.Month()); day > last {
		day = last
	}
	return time.Date(
		start.Year()+years, start.Month(), day,
		start.Hour(), start.Minute(), start.Second(), start.Nanosecond(),
		start.Location(),
	)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// Window is a query range: Start inclusive, End exclusive.
type Window struct {
	Start time.Time
	End   time.Time
}

// OverlapsSpan reports whether [spanStart, spanStart+duration] touches
// the window, so multi-day spans crossing a window boundary still count.
func (w Window) OverlapsSpan(spanStart time.Time, duration time.Duration) bool {
	return spanStart.Before(w.End) && !spanStart.Add(duration).Before(w.Start)
}

// FilterOccurrences keeps the occurrences whose span of the given
// duration overlaps the window. A nil window passes everything through.
func FilterOccurrences(occs []time.Time, duration time.Duration, w *Window) []time.Time {
	if w == nil {
		return occs
	}
	out := make([]time.Time, 0, len(occs))
	for _, occ := range occs {
		if w.OverlapsSpan(occ, duration) {
			out = append(out, occ)
		}
	}
	return out
}
