package main

type TelemetryConfig struct {
	// Base URL of the dashboard receiving task events.
	Url string `mapstructure:"url"`
}

func (c *TelemetryConfig) GetDashboardUri() string {
	return c.Url
}
