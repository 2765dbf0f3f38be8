package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordSubmitted(t *testing.T) {
	before := testutil.ToFloat64(EventsSubmitted.WithLabelValues("capture_batch"))

	RecordSubmitted("capture_batch", 3)
	RecordSubmitted("capture_batch", 0)

	after := testutil.ToFloat64(EventsSubmitted.WithLabelValues("capture_batch"))
	assert.Equal(t, 3.0, after-before)
}

func TestRecordOperationError(t *testing.T) {
	c := OperationErrors.WithLabelValues("capture", "build")
	before := testutil.ToFloat64(c)
	RecordOperationError("capture", "build")
	assert.Equal(t, 1.0, testutil.ToFloat64(c)-before)
}

func TestRecordDelivery(t *testing.T) {
	ok := SDKDeliveries.WithLabelValues(ResultOK)
	failed := SDKDeliveries.WithLabelValues(ResultError)
	okBefore, failedBefore := testutil.ToFloat64(ok), testutil.ToFloat64(failed)

	RecordDelivery(true)
	RecordDelivery(false)
	RecordDelivery(false)

	assert.Equal(t, 1.0, testutil.ToFloat64(ok)-okBefore)
	assert.Equal(t, 2.0, testutil.ToFloat64(failed)-failedBefore)
}

func TestRecordInvocationAndInit(t *testing.T) {
	okC := BridgeInvocations.WithLabelValues("ping", ResultOK)
	errC := BridgeInvocations.WithLabelValues("ping", ResultError)
	okBefore, errBefore := testutil.ToFloat64(okC), testutil.ToFloat64(errC)

	RecordInvocation("ping", time.Millisecond, nil)
	RecordInvocation("ping", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(okC)-okBefore)
	assert.Equal(t, 1.0, testutil.ToFloat64(errC)-errBefore)

	initC := ClientInitializations.WithLabelValues("lazy", ResultError)
	initBefore := testutil.ToFloat64(initC)
	RecordClientInit("lazy", errors.New("no key"))
	assert.Equal(t, 1.0, testutil.ToFloat64(initC)-initBefore)
}
