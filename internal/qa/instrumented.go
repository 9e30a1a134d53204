package qa

import (
	"context"
	"time"
)

type answerObserver interface {
	ObserveAnswer(engine, status string, seconds float64)
}

type instrumentedEngine struct {
	next     Engine
	name     string
	observer answerObserver
	now      func() time.Time
}

// Instrument records latency and outcome of every call to next under name.
func Instrument(next Engine, name string, observer answerObserver) Engine {
	if observer == nil {
		return next
	}
	return &instrumentedEngine{next: next, name: name, observer: observer, now: time.Now}
}

func (e *instrumentedEngine) Answer(ctx context.Context, query string) (string, error) {
	start := e.now()
	answer, err := e.next.Answer(ctx, query)
	status := "ok"
	if err != nil {
		status = "error"
	}
	e.observer.ObserveAnswer(e.name, status, e.now().Sub(start).Seconds())
	return answer, err
}

type boundedEngine struct {
	next    Engine
	timeout time.Duration
}

// Bounded caps every call to next at timeout. A non-positive timeout returns next.
func Bounded(next Engine, timeout time.Duration) Engine {
	if timeout <= 0 {
		return next
	}
	return &boundedEngine{next: next, timeout: timeout}
}

func (e *boundedEngine) Answer(ctx context.Context, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	return e.next.Answer(ctx, query)
}
