package conv

import (
	"time"

	"github.com/born-ml/blitz/internal/logger"
	"github.com/born-ml/blitz/internal/tensor"
)

// Event describes one completed, instrumented operation.
type Event struct {
	Operation Operation
	Algorithm Algorithm
	Geometry  tensor.Conv2DGeometry
	Elapsed   time.Duration
	FLOPs     float64
}

// GFLOPS returns the achieved throughput in billions of floating-point operations
// per second.
func (e Event) GFLOPS() float64 {
	secs := e.Elapsed.Seconds()
	if secs <= 0 {
		return 0
	}
	return e.FLOPs / secs / 1e9
}

// Observer receives instrumentation events.
type Observer interface {
	ObserveConvolution(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// ObserveConvolution implements Observer.
func (f ObserverFunc) ObserveConvolution(e Event) { f(e) }

// LogObserver writes every event at debug level.
type LogObserver struct {
	Logger logger.Logger
}

// ObserveConvolution implements Observer.
func (o LogObserver) ObserveConvolution(e Event) {
	if o.Logger == nil {
		return
	}
	o.Logger.Debug("convolution",
		"op", e.Operation.String(),
		"algorithm", e.Algorithm.String(),
		"elapsed", e.Elapsed,
		"gflops", e.GFLOPS(),
	)
}

// timer brackets one operation. The zero value is disabled.
type timer struct {
	observer Observer
	event    Event
	start    time.Time
}

func (ctx *Context) startTimer(op Operation, g tensor.Conv2DGeometry) timer {
	if !ctx.instrument || ctx.observer == nil {
		return timer{}
	}
	return timer{
		observer: ctx.observer,
		event: Event{
			Operation: op,
			Algorithm: ctx.algorithm,
			Geometry:  g,
			FLOPs:     g.FLOPs(),
		},
		start: time.Now(),
	}
}

// stop must run after the backend has synchronized, so the elapsed time covers
// the device work.
func (t timer) stop() {
	if t.observer == nil {
		return
	}
	t.event.Elapsed = time.Since(t.start)
	t.observer.ObserveConvolution(t.event)
}
