package event

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/codescan/internal/scanerr"
)

func fixedWriter(t *testing.T, format string) (*Writer, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format)
	require.NoError(t, err)
	w.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return w, &buf
}

func TestEventString(t *testing.T) {
	got := []string{
		Start().String(),
		DetectOK("123", "ean13").String(),
		DetectErr(scanerr.NoPermission).String(),
		Stop().String(),
	}
	want := []string{"start", "detect(ok:123)", "detect(ERR_NO_PERMISSION)", "stop"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("event strings mismatch (-want +got):\n%s", diff)
	}
}

func TestMultiAndFuncs(t *testing.T) {
	var calls []string
	f := Funcs{
		Start:  func() { calls = append(calls, "start") },
		Detect: func(r scanerr.Result) { calls = append(calls, "detect:"+r.Value) },
	}
	rec := NewRecorder()
	m := Multi{f, rec, Discard, LogSink{}}
	m.OnStart()
	m.OnDetect(scanerr.Success("v", "qr"))
	m.OnStop()

	assert.Equal(t, []string{"start", "detect:v"}, calls)
	assert.Equal(t, []Kind{KindStart, KindDetect, KindStop}, rec.Kinds())
}

func TestRecorder_WaitFor(t *testing.T) {
	rec := NewRecorder()
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		rec.OnStart()
		rec.OnStop()
	}()

	evs, ok := rec.WaitStop(2 * time.Second)
	require.True(t, ok)
	assert.Equal(t, KindStop, evs[len(evs)-1].Kind)
	wg.Wait()

	_, ok = NewRecorder().WaitStop(10 * time.Millisecond)
	assert.False(t, ok)
}

func TestWriter_Text(t *testing.T) {
	w, buf := fixedWriter(t, FormatText)
	s := w.Source("a.png")
	s.OnStart()
	s.OnDetect(scanerr.Success("hello", "qr"))
	s.OnDetect(scanerr.FailureCode(scanerr.NotDetected))
	s.OnStop()

	want := "a.png: start\na.png: detect qr hello\na.png: detect error ERR_NOT_DETECTED\na.png: stop\n"
	assert.Equal(t, want, buf.String())
}

func TestWriter_JSON(t *testing.T) {
	w, buf := fixedWriter(t, FormatJSON)
	w.OnDetect(scanerr.Success("hello", "qr"))
	w.OnDetect(scanerr.FailureCode(scanerr.NoMedia))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t,
		`{"time":"2026-01-02T03:04:05Z","event":"detect","payload":{"success":true,"value":"hello","format":"qr"}}`,
		lines[0])
	assert.JSONEq(t,
		`{"time":"2026-01-02T03:04:05Z","event":"detect","payload":{"success":false,"error":"ERR_NO_MEDIA"}}`,
		lines[1])
}

func TestWriter_YAML(t *testing.T) {
	w, buf := fixedWriter(t, FormatYAML)
	w.Source("cam").OnDetect(scanerr.Success("42", "ean8"))

	var rec Record
	require.NoError(t, yaml.Unmarshal([]byte(strings.TrimPrefix(buf.String(), "---\n")), &rec))
	assert.Equal(t, KindDetect, rec.Event)
	assert.Equal(t, "cam", rec.Source)
	require.NotNil(t, rec.Payload)
	assert.Equal(t, Payload{Success: true, Value: "42", Format: "ean8"}, *rec.Payload)
}

func TestNewWriter_Format(t *testing.T) {
	_, err := NewWriter(&bytes.Buffer{}, "xml")
	assert.Error(t, err)
	w, err := NewWriter(&bytes.Buffer{}, "")
	require.NoError(t, err)
	assert.Equal(t, FormatText, w.format)
}
