package recurrence

import (
	"errors"
	"sort"
	"time"
)

const (
	// DefaultMaxOccurrences caps a single expansion when the caller does not.
	DefaultMaxOccurrences = 20
	// DefaultLookaheadDays bounds how far past the from date one expansion reaches.
	DefaultLookaheadDays = 60
	// DefaultDurationMinutes is used when a rule carries no positive duration.
	DefaultDurationMinutes = 60
)

// ErrInvalidKind indicates the rule recurrence kind is not supported.
var ErrInvalidKind = errors.New("recurrence: invalid recurrence kind")

// ErrInvalidWeekOfMonth indicates the rule week-of-month ordinal is out of range.
var ErrInvalidWeekOfMonth = errors.New("recurrence: week of month must be 1-5 or last")

// Rule describes a recurring meeting pattern. Optional fields are nil when unset.
type Rule struct {
	ID              string
	OrgID           string
	Kind            Kind
	Interval        int
	DaysOfWeek      []time.Weekday
	DayOfMonth      *int
	WeekOfMonth     *WeekOfMonth
	TimeOfDay       string
	DurationMinutes int
	StartDate       time.Time
	EndDate         *time.Time
	OccurrenceLimit *int
	ExcludeDates    []time.Time
}

// Duration returns the length of each occurrence, applying the 60 minute default.
func (r Rule) Duration() time.Duration {
	minutes := r.DurationMinutes
	if minutes <= 0 {
		minutes = DefaultDurationMinutes
	}
	return time.Duration(minutes) * time.Minute
}

func (r Rule) interval() int {
	if r.Interval <= 0 {
		return 1
	}
	return r.Interval
}

// weekdays returns the distinct valid weekdays of the rule in their original
// order, falling back to the weekday of StartDate.
func (r Rule) weekdays(loc *time.Location) []time.Weekday {
	seen := make(map[time.Weekday]struct{}, len(r.DaysOfWeek))
	days := make([]time.Weekday, 0, len(r.DaysOfWeek))
	for _, day := range r.DaysOfWeek {
		if day < time.Sunday || day > time.Saturday {
			continue
		}
		if _, ok := seen[day]; ok {
			continue
		}
		seen[day] = struct{}{}
		days = append(days, day)
	}
	if len(days) == 0 {
		days = append(days, r.StartDate.In(loc).Weekday())
	}
	return days
}

// Engine expands recurrence rules into occurrence instants.
type Engine struct {
	location      *time.Location
	lookaheadDays int
}

// Option customises an Engine.
type Option func(*Engine)

// WithLookaheadDays overrides the forward window of a single expansion.
func WithLookaheadDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.lookaheadDays = days
		}
	}
}

// NewEngine constructs an Engine computing wall-clock times in loc.
// If loc is nil, time.Local is used.
func NewEngine(loc *time.Location, opts ...Option) *Engine {
	if loc == nil {
		loc = time.Local
	}
	e := &Engine{location: loc, lookaheadDays: DefaultLookaheadDays}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Location reports the location occurrences are computed in.
func (e *Engine) Location() *time.Location {
	if e == nil || e.location == nil {
		return time.Local
	}
	return e.location
}

// Generate expands rule with the default engine. See Engine.Generate.
func Generate(rule Rule, from time.Time, maxCount int) ([]time.Time, error) {
	return NewEngine(nil).Generate(rule, from, maxCount)
}

// Generate returns the ascending, de-duplicated occurrence instants of rule
// that fall inside [max(StartDate, from), min(EndDate, from+lookahead)] and
// are not on an excluded date. At most min(maxCount, OccurrenceLimit)
// instants are returned; maxCount <= 0 selects DefaultMaxOccurrences.
//
// Cursor steps are anchored to the rule StartDate (its day, week or month),
// so two expansions whose windows overlap yield the same instants for the
// overlap regardless of their from dates. The cursor is not phased at the
// lower bound: a daily rule with interval 2 starting 2024-01-01 and expanded
// from 2024-01-02 yields Jan 3, 5, 7 rather than Jan 2, 4, 6.
func (e *Engine) Generate(rule Rule, from time.Time, maxCount int) ([]time.Time, error) {
	if !rule.Kind.Valid() {
		return nil, ErrInvalidKind
	}
	if rule.WeekOfMonth != nil && !rule.WeekOfMonth.Valid() {
		return nil, ErrInvalidWeekOfMonth
	}

	limit := maxCount
	if limit <= 0 {
		limit = DefaultMaxOccurrences
	}
	if rule.OccurrenceLimit != nil && *rule.OccurrenceLimit < limit {
		limit = *rule.OccurrenceLimit
	}
	if limit <= 0 {
		return nil, nil
	}

	loc := e.Location()
	from = from.In(loc)
	start := rule.StartDate.In(loc)

	lower := start
	if from.After(lower) {
		lower = from
	}
	lookahead := e.lookaheadDays
	if lookahead <= 0 {
		lookahead = DefaultLookaheadDays
	}
	upper := from.AddDate(0, 0, lookahead)
	if rule.EndDate != nil && rule.EndDate.Before(upper) {
		upper = rule.EndDate.In(loc)
	}
	if lower.After(upper) {
		return nil, nil
	}

	x := &expansion{
		rule:  rule,
		loc:   loc,
		start: start,
		lower: lower,
		upper: upper,
		limit: limit,
		seen:  make(map[int64]struct{}),
	}

	switch rule.Kind {
	case KindDaily:
		x.daily()
	case KindWeekly:
		x.weekly(7, false)
	case KindBiweekly:
		x.weekly(14, true)
	case KindMonthly:
		x.monthly()
	}

	return x.result(), nil
}

type expansion struct {
	rule  Rule
	loc   *time.Location
	start time.Time
	lower time.Time
	upper time.Time
	limit int
	seen  map[int64]struct{}
	out   []time.Time
}

func (x *expansion) full() bool {
	return len(x.out) >= x.limit
}

func (x *expansion) offer(candidate time.Time) {
	if candidate.Before(x.lower) || candidate.After(x.upper) {
		return
	}
	if IsExcluded(candidate, x.rule.ExcludeDates) {
		return
	}
	key := candidate.UnixNano()
	if _, ok := x.seen[key]; ok {
		return
	}
	x.seen[key] = struct{}{}
	x.out = append(x.out, candidate)
}

func (x *expansion) result() []time.Time {
	if len(x.out) == 0 {
		return nil
	}
	sort.Slice(x.out, func(i, j int) bool { return x.out[i].Before(x.out[j]) })
	if len(x.out) > x.limit {
		x.out = x.out[:x.limit]
	}
	return x.out
}

// firstDayCursor returns the last step of the stepDays grid anchored at the
// start date that is on or before the lower bound date.
func (x *expansion) firstDayCursor(stepDays int) time.Time {
	anchor := dateOf(x.start, x.loc)
	lowerDate := dateOf(x.lower, x.loc)
	if !lowerDate.After(anchor) {
		return anchor
	}
	steps := daysBetween(anchor, lowerDate) / stepDays
	return anchor.AddDate(0, 0, steps*stepDays)
}

func (x *expansion) daily() {
	step := x.rule.interval()
	cursor := x.firstDayCursor(step)
	for !x.full() && !cursor.After(x.upper) {
		x.offer(AtTimeOfDay(cursor, x.rule.TimeOfDay))
		cursor = cursor.AddDate(0, 0, step)
	}
}

func (x *expansion) weekly(periodDays int, evenWeeksOnly bool) {
	step := periodDays * x.rule.interval()
	days := x.rule.weekdays(x.loc)
	anchor := dateOf(x.start, x.loc)
	cursor := x.firstDayCursor(step)

	candidates := make([]time.Time, 0, len(days))
	for !x.full() && !cursor.After(x.upper) {
		candidates = candidates[:0]
		for _, day := range days {
			shift := (int(day) - int(cursor.Weekday()) + 7) % 7
			candidate := AtTimeOfDay(cursor.AddDate(0, 0, shift), x.rule.TimeOfDay)
			if evenWeeksOnly && weeksBetween(anchor, candidate)%2 != 0 {
				continue
			}
			candidates = append(candidates, candidate)
		}
		sort.Slice(candidates, func(i, j int) bool { return candidates[i].Before(candidates[j]) })
		for _, candidate := range candidates {
			x.offer(candidate)
		}
		cursor = cursor.AddDate(0, 0, step)
	}
}

func (x *expansion) monthly() {
	step := x.rule.interval()
	anchor := monthOf(x.start, x.loc)
	cursor := anchor
	if lowerMonth := monthOf(x.lower, x.loc); lowerMonth.After(anchor) {
		steps := monthsBetween(anchor, lowerMonth) / step
		cursor = anchor.AddDate(0, steps*step, 0)
	}

	for !x.full() && !cursor.After(x.upper) {
		if candidate, ok := x.monthlyCandidate(cursor); ok {
			x.offer(candidate)
		}
		cursor = cursor.AddDate(0, step, 0)
	}
}

// monthlyCandidate resolves the occurrence within the month starting at
// firstOfMonth. A fixed day of month wins over the Nth weekday pattern.
func (x *expansion) monthlyCandidate(firstOfMonth time.Time) (time.Time, bool) {
	if x.rule.DayOfMonth != nil {
		day := *x.rule.DayOfMonth
		// Every month has a 28th.
		if day > 28 {
			day = 28
		}
		if day < 1 {
			day = 1
		}
		return AtTimeOfDay(firstOfMonth.AddDate(0, 0, day-1), x.rule.TimeOfDay), true
	}

	weekday := x.rule.weekdays(x.loc)[0]
	ordinal := OrdinalOf(x.start)
	if x.rule.WeekOfMonth != nil {
		ordinal = *x.rule.WeekOfMonth
	}
	date, ok := NthWeekday(firstOfMonth.Year(), firstOfMonth.Month(), weekday, ordinal, x.loc)
	if !ok {
		return time.Time{}, false
	}
	return AtTimeOfDay(date, x.rule.TimeOfDay), true
}

// NthWeekday returns midnight of the ordinal-th weekday of the month, or the
// last one for WeekOfMonthLast. ok is false when the month has no such day.
func NthWeekday(year int, month time.Month, weekday time.Weekday, ordinal WeekOfMonth, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	if !ordinal.Valid() {
		return time.Time{}, false
	}
	if ordinal == WeekOfMonthLast {
		last := time.Date(year, month+1, 0, 0, 0, 0, 0, loc)
		back := (int(last.Weekday()) - int(weekday) + 7) % 7
		return last.AddDate(0, 0, -back), true
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	shift := (int(weekday) - int(first.Weekday()) + 7) % 7
	day := 1 + shift + 7*(int(ordinal)-1)
	if day > daysIn(year, month) {
		return time.Time{}, false
	}
	return first.AddDate(0, 0, day-1), true
}

// OrdinalOf reports which occurrence of its weekday t is within its month.
func OrdinalOf(t time.Time) WeekOfMonth {
	return WeekOfMonth((t.Day()-1)/7 + 1)
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

func monthOf(t time.Time, loc *time.Location) time.Time {
	y, m, _ := t.In(loc).Date()
	return time.Date(y, m, 1, 0, 0, 0, 0, loc)
}

func daysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	ua := time.Date(ay, am, ad, 0, 0, 0, 0, time.UTC)
	ub := time.Date(by, bm, bd, 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}

// weeksBetween counts whole weeks between the calendar dates of a and b.
func weeksBetween(a, b time.Time) int {
	days := daysBetween(a, b)
	if days < 0 {
		return -((-days + 6) / 7)
	}
	return days / 7
}

func monthsBetween(a, b time.Time) int {
	return (b.Year()-a.Year())*12 + int(b.Month()) - int(a.Month())
}
