package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics(t *testing.T) {
	// Register should be safe to call multiple times
	Register()
	Register()

	assert.NotPanics(t, func() {
		IncHTTP("test_endpoint")
		IncCache("hit")
		IncDrain("ran")
	})

	before := testutil.ToFloat64(dispatches.WithLabelValues("customer", ResultSuccess))
	IncDispatch("customer", ResultSuccess)
	assert.Equal(t, before+1, testutil.ToFloat64(dispatches.WithLabelValues("customer", ResultSuccess)))

	SetPending(4)
	assert.Equal(t, float64(4), testutil.ToFloat64(pending))

	SetOnline(true)
	assert.Equal(t, float64(1), testutil.ToFloat64(online))
	SetOnline(false)
	assert.Equal(t, float64(0), testutil.ToFloat64(online))
}
