// Package calendarexport renders materialized events as iCalendar data so
// they can be imported into calendar clients.
package calendarexport

import (
	"fmt"
	"io"
	"time"

	"github.com/emersion/go-ical"

	"github.com/example/meeting-scheduler/internal/persistence"
)

// ProductID identifies this exporter in the PRODID property.
const ProductID = "-//meeting-scheduler//recurrence//EN"

// PropRecurringRuleID carries the generating rule of an occurrence.
const PropRecurringRuleID = "X-RECURRING-RULE-ID"

// Calendar builds a VCALENDAR holding one VEVENT per live event. Soft deleted
// events are omitted. stamp becomes the DTSTAMP of every VEVENT.
func Calendar(events []persistence.Event, stamp time.Time) *ical.Calendar {
	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, ProductID)

	for _, event := range events {
		if event.DeletedAt != nil {
			continue
		}
		cal.Children = append(cal.Children, eventToVEvent(event, stamp).Component)
	}
	return cal
}

// Encode writes events to w as an iCalendar stream.
func Encode(w io.Writer, events []persistence.Event, stamp time.Time) error {
	if err := ical.NewEncoder(w).Encode(Calendar(events, stamp)); err != nil {
		return fmt.Errorf("calendarexport: encode: %w", err)
	}
	return nil
}

func eventToVEvent(event persistence.Event, stamp time.Time) *ical.Event {
	vevent := ical.NewEvent()
	vevent.Props.SetText(ical.PropUID, event.ID)
	vevent.Props.SetText(ical.PropSummary, event.Name)
	if event.Description != "" {
		vevent.Props.SetText(ical.PropDescription, event.Description)
	}
	if event.Location != "" {
		vevent.Props.SetText(ical.PropLocation, event.Location)
	}

	// UTC keeps the output independent of the server's zone database.
	vevent.Props.SetDateTime(ical.PropDateTimeStart, event.Start.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeEnd, event.End.UTC())
	vevent.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	if !event.CreatedAt.IsZero() {
		vevent.Props.SetDateTime(ical.PropCreated, event.CreatedAt.UTC())
	}

	if event.MeetingType != "" {
		vevent.Props.SetText(ical.PropCategories, event.MeetingType)
	}
	if event.RecurringRuleID != nil {
		vevent.Props.SetText(PropRecurringRuleID, *event.RecurringRuleID)
	}
	return vevent
}
