package event

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Payload is the detect event body: success with a value, or failure with
// an error code.
type Payload struct {
	Success bool   `json:"success" yaml:"success"`
	Value   string `json:"value,omitempty" yaml:"value,omitempty"`
	Format  string `json:"format,omitempty" yaml:"format,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

// PayloadOf converts a detection result.
func PayloadOf(res scanerr.Result) Payload {
	if res.OK() {
		return Payload{Success: true, Value: res.Value, Format: res.Format}
	}
	return Payload{Error: string(res.Code())}
}

// Record is one serialized event.
type Record struct {
	Time    time.Time `json:"time" yaml:"time"`
	Source  string    `json:"source,omitempty" yaml:"source,omitempty"`
	Event   Kind      `json:"event" yaml:"event"`
	Payload *Payload  `json:"payload,omitempty" yaml:"payload,omitempty"`
}

// Writer serializes events to an io.Writer, one record per event.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	format string
	now    func() time.Time
}

// NewWriter returns a writer for format text, json or yaml.
func NewWriter(w io.Writer, format string) (*Writer, error) {
	switch format {
	case FormatText, FormatJSON, FormatYAML:
	case "":
		format = FormatText
	default:
		return nil, fmt.Errorf("unsupported output format %q (use text, json or yaml)", format)
	}
	return &Writer{w: w, format: format, now: time.Now}, nil
}

// Source returns a sink whose records carry the given source label.
func (w *Writer) Source(name string) Sink {
	return sourceSink{w: w, source: name}
}

func (w *Writer) OnStart()                    { w.write(Record{Event: KindStart}) }
func (w *Writer) OnDetect(res scanerr.Result) { w.write(detectRecord("", res)) }
func (w *Writer) OnStop()                     { w.write(Record{Event: KindStop}) }

type sourceSink struct {
	w      *Writer
	source string
}

func (s sourceSink) OnStart() { s.w.write(Record{Source: s.source, Event: KindStart}) }
func (s sourceSink) OnDetect(res scanerr.Result) {
	s.w.write(detectRecord(s.source, res))
}
func (s sourceSink) OnStop() { s.w.write(Record{Source: s.source, Event: KindStop}) }

func detectRecord(source string, res scanerr.Result) Record {
	p := PayloadOf(res)
	return Record{Source: source, Event: KindDetect, Payload: &p}
}

func (w *Writer) write(rec Record) {
	w.mu.Lock()
	defer w.mu.Unlock()
	rec.Time = w.now().UTC()

	var err error
	switch w.format {
	case FormatJSON:
		err = json.NewEncoder(w.w).Encode(rec)
	case FormatYAML:
		var out []byte
		out, err = yaml.Marshal(rec)
		if err == nil {
			_, err = fmt.Fprintf(w.w, "---\n%s", out)
		}
	default:
		_, err = fmt.Fprintln(w.w, formatText(rec))
	}
	if err != nil {
		slog.Warn("Failed to write event", "event", rec.Event, "error", err)
	}
}

func formatText(rec Record) string {
	prefix := ""
	if rec.Source != "" {
		prefix = rec.Source + ": "
	}
	if rec.Payload == nil {
		return prefix + string(rec.Event)
	}
	if rec.Payload.Success {
		return fmt.Sprintf("%sdetect %s %s", prefix, rec.Payload.Format, rec.Payload.Value)
	}
	return fmt.Sprintf("%sdetect error %s", prefix, rec.Payload.Error)
}
