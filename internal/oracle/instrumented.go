package oracle

import (
	"context"
	"time"
)

// Recorder receives one observation per lookup.
type Recorder interface {
	RecordOracleLookup(source string, seconds float64, ageSeconds int64, err error)
}

// Instrumented wraps an Oracle and reports latency, errors and quote age.
type Instrumented struct {
	inner  Oracle
	source string
	rec    Recorder
	now    func() time.Time
}

var _ Oracle = (*Instrumented)(nil)

// NewInstrumented wraps inner. source labels the observations.
func NewInstrumented(inner Oracle, source string, rec Recorder) *Instrumented {
	return &Instrumented{inner: inner, source: source, rec: rec, now: time.Now}
}

// LatestQuote delegates to the wrapped oracle.
func (o *Instrumented) LatestQuote(ctx context.Context, feedID string) (*Quote, error) {
	start := o.now()
	q, err := o.inner.LatestQuote(ctx, feedID)
	end := o.now()

	var age int64
	if err == nil && q != nil {
		age = end.Unix() - q.PublishTime
	}
	o.rec.RecordOracleLookup(o.source, end.Sub(start).Seconds(), age, err)
	return q, err
}
