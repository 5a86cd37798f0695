package config

import "go.uber.org/zap"

// NewLogger returns a JSON production logger for APP_ENV=prod and a
// human-readable development logger for everything else.
func NewLogger(env string) (*zap.Logger, error) {
	if env == "prod" || env == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}
