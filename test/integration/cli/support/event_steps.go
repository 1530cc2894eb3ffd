package support

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/google/go-cmp/cmp"

	"github.com/MeKo-Tech/codescan/internal/event"
)

func eventStrings(evs []event.Event) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.String()
	}
	return out
}

// theEventsShouldBe waits for the terminating stop event, then compares the
// full sequence against the table's first column.
func (testCtx *TestContext) theEventsShouldBe(table *godog.Table) error {
	var want []string
	for i, row := range table.Rows {
		if i == 0 {
			continue // header
		}
		want = append(want, row.Cells[0].Value)
	}

	evs, ok := testCtx.Recorder.WaitStop(waitTimeout)
	if !ok {
		return fmt.Errorf("no stop event within %s, got %v", waitTimeout, eventStrings(evs))
	}
	// Allow a late event to surface after stop.
	time.Sleep(20 * time.Millisecond)
	if diff := cmp.Diff(want, eventStrings(testCtx.Recorder.Events())); diff != "" {
		return fmt.Errorf("events mismatch (-want +got):\n%s", diff)
	}
	return nil
}

func (testCtx *TestContext) theEventsShouldEventuallyInclude(want string) error {
	evs, ok := testCtx.Recorder.WaitFor(waitTimeout, func(evs []event.Event) bool {
		return slices.Contains(eventStrings(evs), want)
	})
	if !ok {
		return fmt.Errorf("event %q not seen, got %v", want, eventStrings(evs))
	}
	return nil
}

func (testCtx *TestContext) noEventsShouldHaveBeenEmitted() error {
	if evs := testCtx.Recorder.Events(); len(evs) > 0 {
		return fmt.Errorf("expected no events, got %v", eventStrings(evs))
	}
	return nil
}

func (testCtx *TestContext) noDetectEventShouldBeEmitted() error {
	time.Sleep(50 * time.Millisecond)
	for _, s := range eventStrings(testCtx.Recorder.Events()) {
		if strings.HasPrefix(s, "detect") {
			return fmt.Errorf("unexpected %s", s)
		}
	}
	return nil
}

func (testCtx *TestContext) theScanResultShouldBe(want string) error {
	got := "ok:" + testCtx.LastResult.Value
	if !testCtx.LastResult.OK() {
		got = string(testCtx.LastResult.Code())
	}
	if got != want {
		return fmt.Errorf("scan result is %s, expected %s", got, want)
	}
	return nil
}

// RegisterEventSteps registers event sequence assertions.
func (testCtx *TestContext) RegisterEventSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the events should be:$`, testCtx.theEventsShouldBe)
	sc.Step(`^the events should eventually include "([^"]*)"$`, testCtx.theEventsShouldEventuallyInclude)
	sc.Step(`^no events should have been emitted$`, testCtx.noEventsShouldHaveBeenEmitted)
	sc.Step(`^no detect event should be emitted$`, testCtx.noDetectEventShouldBeEmitted)
	sc.Step(`^the scan result should be "([^"]*)"$`, testCtx.theScanResultShouldBe)
}
