package telemetry

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetupStdout(t *testing.T) {
	var buf bytes.Buffer
	tracer, shutdown, err := Setup(ExporterStdout, &buf)
	require.NoError(t, err)

	_, span := tracer.Start(context.Background(), "score")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	assert.Contains(t, buf.String(), `"Name":"score"`)
	assert.Contains(t, buf.String(), ServiceName)
}

func TestSetupNone(t *testing.T) {
	tracer, shutdown, err := Setup(ExporterNone, nil)
	require.NoError(t, err)
	_, span := tracer.Start(context.Background(), "noop")
	span.End()
	assert.False(t, span.SpanContext().IsValid())
	assert.NoError(t, shutdown(context.Background()))
}

func TestSetupUnknown(t *testing.T) {
	_, _, err := Setup("jaeger", nil)
	assert.Error(t, err)
}
