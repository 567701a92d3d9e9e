package telemetry

// CheckoutServiceConfig is the telemetry configuration for the checkout service
var CheckoutServiceConfig = Config{
	ServiceName:    "checkout-service",
	ServiceVersion: "1.0.0",
}

// WithOTLPEndpoint sets the OTLP endpoint for a config
func (c Config) WithOTLPEndpoint(endpoint string) Config {
	c.OTLPEndpoint = endpoint
	return c
}

// WithServiceName overrides the reported service name
func (c Config) WithServiceName(name string) Config {
	if name != "" {
		c.ServiceName = name
	}
	return c
}

// WithEnvironment tags spans and metrics with the deployment environment
func (c Config) WithEnvironment(env string) Config {
	c.Environment = env
	return c
}

// WithSampleRatio keeps ratio of root traces
func (c Config) WithSampleRatio(ratio float64) Config {
	c.SampleRatio = ratio
	return c
}
