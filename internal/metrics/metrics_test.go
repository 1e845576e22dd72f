package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()

	require.NoError(t, Register(reg))
	// A second registration on the same registry is tolerated.
	require.NoError(t, Register(reg))
}

func TestScriptInvocations(t *testing.T) {
	ScriptInvocations.Reset()

	ScriptInvocations.WithLabelValues("stats", OutcomeSuccess).Inc()
	ScriptInvocations.WithLabelValues("stats", OutcomeSuccess).Inc()
	ScriptInvocations.WithLabelValues("upload-all", OutcomeTimeout).Inc()

	assert.Equal(t, 2.0, testutil.ToFloat64(ScriptInvocations.WithLabelValues("stats", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(ScriptInvocations.WithLabelValues("upload-all", OutcomeTimeout)))
}
