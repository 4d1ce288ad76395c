package instrumentation

// Config controls the metrics pipeline.
type Config struct {
	// Enabled turns metrics collection on. When false the provider hands
	// out no-op recorders.
	Enabled bool

	// ServiceName identifies this service in the exported resource.
	ServiceName string

	// ServiceVersion is the build version attached to the resource.
	ServiceVersion string

	// ServiceInstanceID overrides the instance identifier. Defaults to the
	// hostname when empty.
	ServiceInstanceID string
}

// DefaultConfig returns a Config with metrics enabled.
func DefaultConfig(serviceName, serviceVersion string) Config {
	return Config{
		Enabled:        true,
		ServiceName:    serviceName,
		ServiceVersion: serviceVersion,
	}
}
