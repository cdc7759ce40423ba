package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew(t *testing.T) {
	for scenario, tc := range map[string]struct {
		config  Config
		level   zapcore.Level
		wantErr bool
	}{
		"defaults to info": {config: Config{}, level: zapcore.InfoLevel},
		"debug console":    {config: Config{Level: "debug", Format: "console"}, level: zapcore.DebugLevel},
		"development warn": {config: Config{Level: "WARN", Development: true}, level: zapcore.WarnLevel},
		"unknown level":    {config: Config{Level: "chatty"}, wantErr: true},
		"unknown format":   {config: Config{Format: "xml"}, wantErr: true},
	} {
		t.Run(scenario, func(t *testing.T) {
			logger, err := New(tc.config)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.True(t, logger.Core().Enabled(tc.level))
			require.False(t, logger.Core().Enabled(tc.level-1))
		})
	}
}
