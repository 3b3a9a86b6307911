package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew_Levels(t *testing.T) {
	tests := []struct {
		mode      string
		debugOn   bool
		infoOnNow bool
	}{
		{mode: "prod", debugOn: false, infoOnNow: true},
		{mode: "Production", debugOn: false, infoOnNow: true},
		{mode: "dev", debugOn: true, infoOnNow: true},
		{mode: "", debugOn: true, infoOnNow: true},
	}
	for _, tt := range tests {
		t.Run(tt.mode, func(t *testing.T) {
			log, err := New(tt.mode)
			require.NoError(t, err)
			require.Equal(t, tt.debugOn, log.Core().Enabled(zap.DebugLevel))
			require.Equal(t, tt.infoOnNow, log.Core().Enabled(zap.InfoLevel))
		})
	}
}
