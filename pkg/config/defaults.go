package config

// Event publisher providers.
const (
	EventsProviderNop   = "nop"
	EventsProviderKafka = "kafka"
)

const (
	defaultAPIListen       = ":8080"
	defaultAnalysisTimeout = "10s"

	defaultAnalysisWorkers   = 2
	defaultAnalysisQueueSize = 16

	defaultEventsProvider = EventsProviderNop
	defaultEventsTopic    = "warren.catalog"

	defaultClientAPITarget = "http://localhost:8080"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		API: APIConfig{
			Listen:          defaultAPIListen,
			AnalysisTimeout: defaultAnalysisTimeout,
		},
		Analysis: AnalysisConfig{
			Workers:   defaultAnalysisWorkers,
			QueueSize: defaultAnalysisQueueSize,
		},
		Events: EventsConfig{
			Provider: defaultEventsProvider,
			Topic:    defaultEventsTopic,
		},
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
		},
	}
}
