package schedule

import (
	"errors"
	"testing"
	"time"

	"bookline/agent/contract"
)

func hours(open, close string) contract.DayHours {
	return contract.DayHours{Open: &open, Close: &close}
}

func mustSlot(t *testing.T, date, start, end string) contract.Slot {
	t.Helper()
	s, err := time.ParseInLocation("2006-01-02 15:04", date+" "+start, time.UTC)
	if err != nil {
		t.Fatalf("parse start: %v", err)
	}
	e, err := time.ParseInLocation("2006-01-02 15:04", date+" "+end, time.UTC)
	if err != nil {
		t.Fatalf("parse end: %v", err)
	}
	return contract.Slot{Start: s, End: e}
}

func busyAt(t *testing.T, date, start, end string) contract.BusyInterval {
	t.Helper()
	s := mustSlot(t, date, start, end)
	return contract.BusyInterval{Start: s.Start, End: s.End}
}

func TestFreeSlotsClosedDay(t *testing.T) {
	t.Parallel()

	got, err := FreeSlots("2026-09-07", time.UTC, contract.DayHours{}, nil, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots on a closed day, got %d", len(got))
	}

	open := "09:00"
	got, err = FreeSlots("2026-09-07", time.UTC, contract.DayHours{Open: &open}, nil, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots with missing close, got %d", len(got))
	}
}

func TestFreeSlotsFullDayNoBusy(t *testing.T) {
	t.Parallel()

	// 09:00-17:00, duration 30, granularity 30 -> 16 slots tiling the window.
	got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), nil, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 16 {
		t.Fatalf("expected 16 slots, got %d", len(got))
	}
	if want := mustSlot(t, "2026-09-07", "09:00", "09:30"); got[0] != want {
		t.Fatalf("first slot = %v, want %v", got[0], want)
	}
	if want := mustSlot(t, "2026-09-07", "16:30", "17:00"); got[len(got)-1] != want {
		t.Fatalf("last slot = %v, want %v", got[len(got)-1], want)
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Start.After(got[i-1].Start) {
			t.Fatalf("slot starts not strictly increasing at %d", i)
		}
	}
}

func TestFreeSlotsSkipsBusyOverlaps(t *testing.T) {
	t.Parallel()

	busy := []contract.BusyInterval{busyAt(t, "2026-09-07", "10:00", "10:30")}
	got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "12:00"), busy, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}

	want := []contract.Slot{
		mustSlot(t, "2026-09-07", "09:00", "09:30"),
		mustSlot(t, "2026-09-07", "09:30", "10:00"),
		mustSlot(t, "2026-09-07", "10:30", "11:00"),
		mustSlot(t, "2026-09-07", "11:00", "11:30"),
		mustSlot(t, "2026-09-07", "11:30", "12:00"),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d slots, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("slot[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestFreeSlotsBusySpansWholeWindow(t *testing.T) {
	t.Parallel()

	busy := []contract.BusyInterval{busyAt(t, "2026-09-07", "08:00", "18:00")}
	got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), busy, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots under a full-window busy interval, got %d", len(got))
	}
}

func TestFreeSlotsDurationLongerThanWindow(t *testing.T) {
	t.Parallel()

	got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), nil, 9*60, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no slots when duration exceeds window, got %d", len(got))
	}
}

func TestFreeSlotsCountFormula(t *testing.T) {
	t.Parallel()

	// floor((8h - d)/granularity) + 1 for d <= 8h.
	for _, d := range []int{15, 30, 45, 60, 90, 240, 480} {
		got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), nil, d, 30)
		if err != nil {
			t.Fatalf("FreeSlots(d=%d) error = %v", d, err)
		}
		want := (8*60-d)/30 + 1
		if len(got) != want {
			t.Fatalf("FreeSlots(d=%d) = %d slots, want %d", d, len(got), want)
		}
	}
}

func TestFreeSlotsNoOverlapInvariant(t *testing.T) {
	t.Parallel()

	busy := []contract.BusyInterval{
		busyAt(t, "2026-09-07", "09:15", "09:45"),
		busyAt(t, "2026-09-07", "11:00", "12:30"),
		busyAt(t, "2026-09-07", "15:50", "16:05"),
	}
	got, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), busy, 45, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	windowEnd := mustSlot(t, "2026-09-07", "16:15", "17:00").End
	for _, s := range got {
		if s.End.After(windowEnd) {
			t.Fatalf("slot %v extends past window end", s)
		}
		for _, b := range busy {
			if s.Start.Before(b.End) && s.End.After(b.Start) {
				t.Fatalf("slot %v overlaps busy %v", s, b)
			}
		}
	}
}

func TestFreeSlotsDeterministic(t *testing.T) {
	t.Parallel()

	busy := []contract.BusyInterval{busyAt(t, "2026-09-07", "10:00", "11:00")}
	first, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), busy, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	second, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), busy, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("repeat run differs: %d vs %d slots", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("repeat run differs at %d: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestFreeSlotsRejectsNonPositiveDuration(t *testing.T) {
	t.Parallel()

	_, err := FreeSlots("2026-09-07", time.UTC, hours("09:00", "17:00"), nil, 0, 30)
	if !errors.Is(err, contract.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestFreeSlotsHonorsTimezone(t *testing.T) {
	t.Parallel()

	loc := time.FixedZone("UTC-5", -5*60*60)
	got, err := FreeSlots("2026-09-07", loc, hours("09:00", "10:00"), nil, 30, 30)
	if err != nil {
		t.Fatalf("FreeSlots() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(got))
	}
	wantUTC := time.Date(2026, 9, 7, 14, 0, 0, 0, time.UTC)
	if !got[0].Start.Equal(wantUTC) {
		t.Fatalf("first slot start = %v, want %v (UTC)", got[0].Start, wantUTC)
	}
}
