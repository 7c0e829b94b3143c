package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/meeting-scheduler/internal/application"
	"github.com/example/meeting-scheduler/internal/recurrence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// MaterializeServiceDeps captures dependencies for constructing a materialize service.
type MaterializeServiceDeps struct {
	Events      application.EventStore
	Configs     application.MeetingConfigStore
	Agendas     application.AgendaStore
	Rules       application.RuleStore
	Engine      *recurrence.Engine
	IDGenerator func() string
	Now         func() time.Time
	Logger      *slog.Logger
}

// NewMaterializeService builds a materialize service using the supplied
// dependencies combined with the factory defaults. A nil Engine expands in UTC.
func (f *ServiceFactory) NewMaterializeService(deps MaterializeServiceDeps) *application.MaterializeService {
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = f.IDGenerator.NextFunc()
	}
	now := deps.Now
	if now == nil {
		now = f.Clock.NowFunc()
	}
	engine := deps.Engine
	if engine == nil {
		engine = recurrence.NewEngine(time.UTC)
	}
	return application.NewMaterializeServiceWithLogger(
		deps.Events,
		deps.Configs,
		deps.Agendas,
		deps.Rules,
		engine,
		idGen,
		now,
		deps.Logger,
	)
}
