package scheduling

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/clinware/backend/models"
)

// DefaultSlotDuration is used when a schedule entry or booking request
// carries no explicit duration.
const DefaultSlotDuration = 30

// parseClockMinutes converts an HH:MM (or H:M) clock string into minutes
// since midnight.
func parseClockMinutes(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return hour*60 + minute, nil
}

func formatClockMinutes(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// NormalizeClockTime rewrites a clock string into zero-padded HH:MM so
// that "8:0" and "08:00" compare equal everywhere downstream.
func NormalizeClockTime(s string) (string, error) {
	m, err := parseClockMinutes(s)
	if err != nil {
		return "", err
	}
	return formatClockMinutes(m), nil
}

// GenerateSlots produces the bookable slot start times for one schedule
// window: startTime, startTime+slotDuration, ... while strictly less than
// endTime. A trailing partial slot is never emitted. Bad input (non-positive
// duration, end before start, unparseable times) yields an empty list
// rather than an error.
func GenerateSlots(startTime, endTime string, slotDuration int) []string {
	if slotDuration <= 0 {
		return nil
	}
	start, err := parseClockMinutes(startTime)
	if err != nil {
		return nil
	}
	end, err := parseClockMinutes(endTime)
	if err != nil {
		return nil
	}
	if end <= start {
		return nil
	}

	var slots []string
	for current := start; current < end; current += slotDuration {
		slots = append(slots, formatClockMinutes(current))
	}
	return slots
}

// mergeSlots concatenates, de-duplicates and sorts slot lists from several
// schedule entries. HH:MM is fixed-width and zero-padded, so lexicographic
// order is chronological order.
func mergeSlots(lists ...[]string) []string {
	seen := make(map[string]bool)
	var merged []string
	for _, list := range lists {
		for _, slot := range list {
			if !seen[slot] {
				seen[slot] = true
				merged = append(merged, slot)
			}
		}
	}
	sort.Strings(merged)
	return merged
}

// ParseDate parses a YYYY-MM-DD string as UTC midnight. Day-of-week
// resolution must not depend on the host timezone, so every date string in
// the system goes through here.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatDate renders the calendar day of t in UTC as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// FilterByDate keeps the appointments that fall on the calendar day of
// target. Comparison is on formatted date strings, so the time-of-day
// stored inside an appointment's date is ignored. Status is not examined;
// callers that only want active appointments filter that themselves.
func FilterByDate(appointments []models.Appointment, target time.Time) []models.Appointment {
	day := FormatDate(target)
	var out []models.Appointment
	for _, appt := range appointments {
		if FormatDate(appt.AppointmentDate) == day {
			out = append(out, appt)
		}
	}
	return out
}

// NormalizeDate accepts the three date shapes that reach the system
// boundary (a time.Time, an ISO/RFC3339 string, or a decoded JSON object
// carrying epoch seconds) and produces a single canonical time.Time in UTC.
func NormalizeDate(v any) (time.Time, error) {
	switch d := v.(type) {
	case time.Time:
		return d.UTC(), nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, d); err == nil {
				return t.UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, d)
	case map[string]any:
		for _, key := range []string{"seconds", "_seconds"} {
			switch sec := d[key].(type) {
			case float64:
				return time.Unix(int64(sec), 0).UTC(), nil
			case int64:
				return time.Unix(sec, 0).UTC(), nil
			case int:
				return time.Unix(int64(sec), 0).UTC(), nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: object without epoch seconds", ErrInvalidDate)
	default:
		return time.Time{}, fmt.Errorf("%w: unsupported value of type %T", ErrInvalidDate, v)
	}
}

// templateWindow is one day/time-range block inside a named template.
type templateWindow struct {
	dayOfWeek int
	startTime string
	endTime   string
}

var scheduleTemplates = map[string][]templateWindow{
	"weekday-morning": {
		{1, "09:00", "13:00"},
		{2, "09:00", "13:00"},
		{3, "09:00", "13:00"},
		{4, "09:00", "13:00"},
		{5, "09:00", "13:00"},
	},
	"weekday-evening": {
		{1, "17:00", "21:00"},
		{2, "17:00", "21:00"},
		{3, "17:00", "21:00"},
		{4, "17:00", "21:00"},
		{5, "17:00", "21:00"},
	},
	"full-week": {
		{1, "09:00", "17:00"},
		{2, "09:00", "17:00"},
		{3, "09:00", "17:00"},
		{4, "09:00", "17:00"},
		{5, "09:00", "17:00"},
		{6, "09:00", "17:00"},
	},
	"weekend": {
		{6, "10:00", "14:00"},
		{0, "10:00", "14:00"},
	},
}

// TemplateNames lists the available schedule presets in stable order.
func TemplateNames() []string {
	names := make([]string, 0, len(scheduleTemplates))
	for name := range scheduleTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ExpandTemplate turns a named preset into concrete DoctorSchedule entries
// with the given slot duration and optional service-type tag.
func ExpandTemplate(name string, slotDuration int, serviceType string) ([]models.DoctorSchedule, error) {
	windows, ok := scheduleTemplates[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, name)
	}
	if slotDuration <= 0 {
		slotDuration = DefaultSlotDuration
	}

	entries := make([]models.DoctorSchedule, 0, len(windows))
	for _, w := range windows {
		entries = append(entries, models.DoctorSchedule{
			DayOfWeek:    w.dayOfWeek,
			StartTime:    w.startTime,
			EndTime:      w.endTime,
			SlotDuration: slotDuration,
			Type:         serviceType,
		})
	}
	return entries, nil
}
