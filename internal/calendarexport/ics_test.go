package calendarexport

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/meeting-scheduler/internal/persistence"
)

func TestEncodeRoundTrip(t *testing.T) {
	t.Parallel()

	jst := time.FixedZone("JST", 9*60*60)
	ruleID := "rule-1"
	deleted := time.Date(2024, time.January, 3, 0, 0, 0, 0, time.UTC)
	events := []persistence.Event{
		{
			ID:              "event-1",
			Name:            "Board meeting",
			Description:     "Monthly board meeting",
			Location:        "HQ",
			Start:           time.Date(2024, time.January, 25, 19, 0, 0, 0, jst),
			End:             time.Date(2024, time.January, 25, 20, 30, 0, 0, jst),
			MeetingType:     "board",
			RecurringRuleID: &ruleID,
			CreatedAt:       time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:        "event-2",
			Name:      "Cancelled",
			Start:     time.Date(2024, time.February, 1, 10, 0, 0, 0, time.UTC),
			End:       time.Date(2024, time.February, 1, 11, 0, 0, 0, time.UTC),
			DeletedAt: &deleted,
		},
	}
	stamp := time.Date(2024, time.January, 2, 15, 4, 5, 0, time.UTC)

	var buf bytes.Buffer
	if err := Encode(&buf, events, stamp); err != nil {
		t.Fatalf("Encode returned error: %v", err)
	}
	if !strings.Contains(buf.String(), "PRODID:"+ProductID) {
		t.Fatalf("expected product id in output:\n%s", buf.String())
	}

	cal, err := ical.NewDecoder(&buf).Decode()
	if err != nil {
		t.Fatalf("Decode returned error: %v", err)
	}
	vevents := cal.Events()
	if len(vevents) != 1 {
		t.Fatalf("expected only the live event, got %d", len(vevents))
	}
	vevent := vevents[0]

	texts := map[string]string{
		ical.PropUID:         "event-1",
		ical.PropSummary:     "Board meeting",
		ical.PropDescription: "Monthly board meeting",
		ical.PropLocation:    "HQ",
		PropRecurringRuleID:  "rule-1",
	}
	for prop, want := range texts {
		got, err := vevent.Props.Text(prop)
		if err != nil || got != want {
			t.Fatalf("%s = %q (%v), want %q", prop, got, err, want)
		}
	}

	start, err := vevent.Props.DateTime(ical.PropDateTimeStart, time.UTC)
	if err != nil || !start.Equal(events[0].Start) {
		t.Fatalf("DTSTART = %v (%v), want %v", start, err, events[0].Start)
	}
	end, err := vevent.Props.DateTime(ical.PropDateTimeEnd, time.UTC)
	if err != nil || !end.Equal(events[0].End) {
		t.Fatalf("DTEND = %v (%v), want %v", end, err, events[0].End)
	}
	dtstamp, err := vevent.Props.DateTime(ical.PropDateTimeStamp, time.UTC)
	if err != nil || !dtstamp.Equal(stamp) {
		t.Fatalf("DTSTAMP = %v (%v), want %v", dtstamp, err, stamp)
	}
}

func TestCalendarOmitsOptionalProperties(t *testing.T) {
	t.Parallel()

	event := persistence.Event{
		ID:    "event-1",
		Name:  "Standalone",
		Start: time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC),
		End:   time.Date(2024, time.March, 1, 10, 0, 0, 0, time.UTC),
	}
	cal := Calendar([]persistence.Event{event}, event.Start)
	vevents := cal.Events()
	if len(vevents) != 1 {
		t.Fatalf("expected one event, got %d", len(vevents))
	}
	for _, prop := range []string{ical.PropDescription, ical.PropLocation, ical.PropCategories, ical.PropCreated, PropRecurringRuleID} {
		if vevents[0].Props.Get(prop) != nil {
			t.Fatalf("expected %s to be omitted", prop)
		}
	}
}
