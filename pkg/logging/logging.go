// Package logging constructs the service logger
package logging

import (
	"github.com/Gobusters/ectologger"
	"github.com/Gobusters/ectologger/zapadapter"
	"go.uber.org/zap"
)

// New builds a zap-backed logger. Pretty switches to the development
// encoder for local runs; production gets JSON.
func New(pretty bool) ectologger.Logger {
	var zapLogger *zap.Logger
	var err error
	if pretty {
		zapLogger, err = zap.NewDevelopment()
	} else {
		zapLogger, err = zap.NewProduction()
	}
	if err != nil {
		zapLogger = zap.NewNop()
	}
	return zapadapter.NewZapEctoLogger(zapLogger, nil)
}
