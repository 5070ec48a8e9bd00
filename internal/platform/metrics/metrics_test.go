package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(deliveries.WithLabelValues("delivered"))
	RecordDelivery(true)
	RecordDelivery(true)
	RecordDelivery(false)
	assert.Equal(t, before+2, testutil.ToFloat64(deliveries.WithLabelValues("delivered")))

	runsBefore := testutil.ToFloat64(runsTotal.WithLabelValues("error"))
	RecordRun(errors.New("x"))
	assert.Equal(t, runsBefore+1, testutil.ToFloat64(runsTotal.WithLabelValues("error")))

	RecordRoutingFailure("no_path")
	assert.Equal(t, 1, testutil.CollectAndCount(routingFailures))
}
