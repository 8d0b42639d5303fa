package migration

import (
	"fmt"

	"github.com/pressly/goose/v3"
	"github.com/rs/zerolog"
)

type GooseAdapter struct {
	logger zerolog.Logger
}

func NewGooseAdapter(logger zerolog.Logger) goose.Logger {
	return &GooseAdapter{
		logger: logger.With().Str("component", "goose").Logger(),
	}
}

func (a *GooseAdapter) Fatalf(format string, v ...interface{}) {
	a.logger.Fatal().Msg(fmt.Sprintf(format, v...))
}

func (a *GooseAdapter) Printf(format string, v ...interface{}) {
	a.logger.Info().Msg(fmt.Sprintf(format, v...))
}
