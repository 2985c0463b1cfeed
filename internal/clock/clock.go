// Package clock stamps records. Services take a Clock instead of calling time.Now so tests can pin
// time.
package clock

import (
	"context"
	"time"

	"go.uber.org/fx"
)

var Module = fx.Module("clock",
	fx.Provide(Provide),
)

type Clock interface {
	Now(ctx context.Context) time.Time
}

// SystemClock reports wall time in UTC.
type SystemClock struct{}

func (SystemClock) Now(context.Context) time.Time {
	return time.Now().UTC()
}

// Fixed always reports the same instant.
type Fixed time.Time

func (f Fixed) Now(context.Context) time.Time {
	return time.Time(f).UTC()
}

func Provide() Clock {
	return SystemClock{}
}
