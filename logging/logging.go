// Package logging builds the process-wide zap logger
package logging

import "go.uber.org/zap"

// New creates a zap logger for the given environment: JSON at info level for
// production, a human readable debug logger for development and the example
// logger for anything else.
func New(env string) (*zap.Logger, error) {
	switch env {
	case "production":
		return zap.NewProduction()
	case "development":
		return zap.NewDevelopment()
	}
	return zap.NewExample(), nil
}
