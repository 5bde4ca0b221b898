package scheduling

import (
	"context"
	"reflect"
	"testing"
	"time"

	"github.com/clinware/backend/models"
)

func TestGenerateSlots_Deterministic(t *testing.T) {
	got := GenerateSlots("08:00", "08:30", 10)
	want := []string{"08:00", "08:10", "08:20"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGenerateSlots_ExcludesEndTime(t *testing.T) {
	// 09:00 start of a slot equal to the end time must not be emitted.
	got := GenerateSlots("08:00", "09:00", 30)
	want := []string{"08:00", "08:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
}

func TestGenerateSlots_ZeroDurationGuard(t *testing.T) {
	if got := GenerateSlots("08:00", "09:00", 0); len(got) != 0 {
		t.Errorf("expected no slots for zero duration, got %v", got)
	}
	if got := GenerateSlots("08:00", "09:00", -15); len(got) != 0 {
		t.Errorf("expected no slots for negative duration, got %v", got)
	}
}

func TestGenerateSlots_EndBeforeStart(t *testing.T) {
	if got := GenerateSlots("17:00", "09:00", 30); len(got) != 0 {
		t.Errorf("expected no slots when end precedes start, got %v", got)
	}
	if got := GenerateSlots("09:00", "09:00", 30); len(got) != 0 {
		t.Errorf("expected no slots for empty window, got %v", got)
	}
}

func TestGenerateSlots_ZeroPadded(t *testing.T) {
	got := GenerateSlots("8:0", "9:0", 30)
	want := []string{"08:00", "08:30"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected zero-padded slots %v, got %v", want, got)
	}
}

func TestGenerateSlots_BadInput(t *testing.T) {
	if got := GenerateSlots("not-a-time", "09:00", 30); len(got) != 0 {
		t.Errorf("expected no slots for malformed start, got %v", got)
	}
	if got := GenerateSlots("08:00", "25:00", 30); len(got) != 0 {
		t.Errorf("expected no slots for out-of-range end, got %v", got)
	}
}

func TestNormalizeClockTime(t *testing.T) {
	got, err := NormalizeClockTime("8:5")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "08:05" {
		t.Errorf("expected 08:05, got %s", got)
	}

	if _, err := NormalizeClockTime("24:00"); err == nil {
		t.Error("expected error for hour out of range")
	}
	if _, err := NormalizeClockTime("0930"); err == nil {
		t.Error("expected error for missing colon")
	}
}

func TestParseDate_DayOfWeekStability(t *testing.T) {
	// 2024-03-10 is a Sunday; the resolution must not depend on the host
	// timezone because the string is parsed as UTC midnight.
	day, err := ParseDate("2024-03-10")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if day.Weekday() != time.Sunday {
		t.Errorf("expected Sunday (0), got %v", day.Weekday())
	}
}

func TestParseDate_Malformed(t *testing.T) {
	if _, err := ParseDate("10-03-2024"); err == nil {
		t.Error("expected error for non-ISO date")
	}
}

func TestNormalizeDate_ThreeShapes(t *testing.T) {
	want := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	if got, err := NormalizeDate(want); err != nil || !got.Equal(want) {
		t.Errorf("time.Time shape: got %v, %v", got, err)
	}

	if got, err := NormalizeDate("2024-03-10"); err != nil || FormatDate(got) != "2024-03-10" {
		t.Errorf("date string shape: got %v, %v", got, err)
	}

	if got, err := NormalizeDate("2024-03-10T14:30:00Z"); err != nil || FormatDate(got) != "2024-03-10" {
		t.Errorf("RFC3339 shape: got %v, %v", got, err)
	}

	epoch := map[string]any{"seconds": float64(want.Unix())}
	if got, err := NormalizeDate(epoch); err != nil || !got.Equal(want) {
		t.Errorf("epoch-seconds shape: got %v, %v", got, err)
	}

	if _, err := NormalizeDate(42); err == nil {
		t.Error("expected error for unsupported shape")
	}
	if _, err := NormalizeDate(map[string]any{"nanos": 5}); err == nil {
		t.Error("expected error for object without seconds")
	}
}

func TestFilterByDate(t *testing.T) {
	appts := []models.Appointment{
		{AppointmentID: "a1", AppointmentDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC)},
		{AppointmentID: "a2", AppointmentDate: time.Date(2024, 3, 12, 0, 0, 0, 0, time.UTC)},
		// Same day with a time-of-day component, which must not matter.
		{AppointmentID: "a3", AppointmentDate: time.Date(2024, 3, 11, 14, 30, 0, 0, time.UTC)},
		{AppointmentID: "a4", AppointmentDate: time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC), Status: models.AppointmentCancelled},
	}

	got := FilterByDate(appts, time.Date(2024, 3, 11, 0, 0, 0, 0, time.UTC))
	if len(got) != 3 {
		t.Fatalf("expected 3 appointments on 2024-03-11, got %d", len(got))
	}
	for _, appt := range got {
		if FormatDate(appt.AppointmentDate) != "2024-03-11" {
			t.Errorf("appointment %s has wrong date %s", appt.AppointmentID, FormatDate(appt.AppointmentDate))
		}
	}

	if got := FilterByDate(appts, time.Date(2024, 3, 13, 0, 0, 0, 0, time.UTC)); len(got) != 0 {
		t.Errorf("expected no appointments on empty day, got %d", len(got))
	}
}

func TestStoreQueryDateFilter(t *testing.T) {
	store := newMemStore()
	seedBookingFixtures(store)
	svc := newTestService(store)

	if _, err := svc.Book(context.Background(), BookingRequest{
		PatientID:       "pat-1",
		DoctorID:        "doc-1",
		AppointmentDate: monday,
		AppointmentTime: "09:00",
	}, adminActor); err != nil {
		t.Fatalf("first booking failed: %v", err)
	}
	if _, err := svc.Book(context.Background(), BookingRequest{
		PatientID:       "pat-2",
		DoctorID:        "doc-1",
		AppointmentDate: "2024-03-18",
		AppointmentTime: "09:00",
	}, adminActor); err != nil {
		t.Fatalf("second booking failed: %v", err)
	}

	day := mustDate(t, monday)
	got, err := store.Appointments(context.Background(), AppointmentQuery{DoctorID: "doc-1", Date: &day})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 appointment when querying with a date, got %d", len(got))
	}
	if FormatDate(got[0].AppointmentDate) != monday {
		t.Errorf("expected appointment on %s, got %s", monday, FormatDate(got[0].AppointmentDate))
	}
}

func TestExpandTemplate(t *testing.T) {
	entries, err := ExpandTemplate("weekday-morning", 20, "general")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	for _, e := range entries {
		if e.DayOfWeek < 1 || e.DayOfWeek > 5 {
			t.Errorf("weekday template produced day %d", e.DayOfWeek)
		}
		if e.SlotDuration != 20 {
			t.Errorf("expected slot duration 20, got %d", e.SlotDuration)
		}
		if e.Type != "general" {
			t.Errorf("expected service type general, got %q", e.Type)
		}
	}
}

func TestExpandTemplate_DefaultDuration(t *testing.T) {
	entries, err := ExpandTemplate("weekend", 0, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, e := range entries {
		if e.SlotDuration != DefaultSlotDuration {
			t.Errorf("expected default duration %d, got %d", DefaultSlotDuration, e.SlotDuration)
		}
	}
}

func TestExpandTemplate_Unknown(t *testing.T) {
	if _, err := ExpandTemplate("night-shift", 30, ""); err == nil {
		t.Error("expected error for unknown template")
	}
}

func TestTemplateNames_Stable(t *testing.T) {
	a := TemplateNames()
	b := TemplateNames()
	if !reflect.DeepEqual(a, b) {
		t.Errorf("template names not stable: %v vs %v", a, b)
	}
	if len(a) == 0 {
		t.Error("expected at least one template")
	}
}
