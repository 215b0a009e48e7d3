package observability

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/annel0/spellduel/internal/config"
)

func TestInitTelemetry_Disabled(t *testing.T) {
	shutdown, err := InitTelemetry(context.Background(), config.TelemetryConfig{Enabled: false})
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))

	_, span := Tracer().Start(context.Background(), "noop")
	span.End()
}
