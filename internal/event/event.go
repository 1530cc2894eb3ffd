// Package event defines the sink through which scans report progress to the
// host, plus the stock sink implementations.
//
// Every scan emits OnStart, zero or more OnDetect and exactly one OnStop.
// Sinks are invoked synchronously from the goroutine driving the scan.
package event

import (
	"log/slog"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Kind names an event.
type Kind string

const (
	KindStart  Kind = "start"
	KindDetect Kind = "detect"
	KindStop   Kind = "stop"
)

// Sink receives scan lifecycle events.
type Sink interface {
	OnStart()
	OnDetect(res scanerr.Result)
	OnStop()
}

// Event is one recorded sink invocation.
type Event struct {
	Kind   Kind
	Result scanerr.Result
}

// Start, Detect and Stop build events for comparisons.
func Start() Event                        { return Event{Kind: KindStart} }
func Detect(res scanerr.Result) Event     { return Event{Kind: KindDetect, Result: res} }
func Stop() Event                         { return Event{Kind: KindStop} }
func DetectOK(value, format string) Event { return Detect(scanerr.Success(value, format)) }
func DetectErr(code scanerr.Code) Event   { return Detect(scanerr.FailureCode(code)) }

// String renders the event as start, stop, detect(ok:VALUE) or
// detect(CODE).
func (e Event) String() string {
	if e.Kind != KindDetect {
		return string(e.Kind)
	}
	if e.Result.OK() {
		return "detect(ok:" + e.Result.Value + ")"
	}
	return "detect(" + string(e.Result.Code()) + ")"
}

// Funcs adapts optional callbacks into a Sink.
type Funcs struct {
	Start  func()
	Detect func(scanerr.Result)
	Stop   func()
}

func (f Funcs) OnStart() {
	if f.Start != nil {
		f.Start()
	}
}

func (f Funcs) OnDetect(res scanerr.Result) {
	if f.Detect != nil {
		f.Detect(res)
	}
}

func (f Funcs) OnStop() {
	if f.Stop != nil {
		f.Stop()
	}
}

// Multi fans events out to several sinks in order.
type Multi []Sink

func (m Multi) OnStart() {
	for _, s := range m {
		s.OnStart()
	}
}

func (m Multi) OnDetect(res scanerr.Result) {
	for _, s := range m {
		s.OnDetect(res)
	}
}

func (m Multi) OnStop() {
	for _, s := range m {
		s.OnStop()
	}
}

// Discard ignores every event.
var Discard Sink = Funcs{}

// LogSink logs events through a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) logger() *slog.Logger {
	if l.Logger != nil {
		return l.Logger
	}
	return slog.Default()
}

func (l LogSink) OnStart() { l.logger().Info("Scan started") }

func (l LogSink) OnDetect(res scanerr.Result) {
	if res.OK() {
		l.logger().Info("Code detected", "value", res.Value, "format", res.Format)
		return
	}
	l.logger().Info("Detection failed", "code", string(res.Code()), "error", res.Err)
}

func (l LogSink) OnStop() { l.logger().Info("Scan stopped") }
