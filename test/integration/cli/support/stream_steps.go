package support

import (
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/capture/capturetest"
	"github.com/MeKo-Tech/codescan/internal/scanerr"
	"github.com/MeKo-Tech/codescan/internal/scanner"
	"github.com/MeKo-Tech/codescan/internal/scheduler"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

const waitTimeout = 5 * time.Second

func (testCtx *TestContext) newStreamScanner(surface string, mc capture.MediaCapture) error {
	testCtx.Scheduler = scheduler.NewFrame(240)
	cfg := scanner.DefaultConfig()
	cfg.Pipeline.Thresholds.MinSampleInterval = 10 * time.Millisecond

	s, err := scanner.New(&scanner.Host{
		EnableStream: true,
		Surfaces:     capture.NewSurfaces(surface),
		Capture:      mc,
		Scheduler:    testCtx.Scheduler,
		Sink:         testCtx.Recorder,
	}, cfg)
	if err != nil {
		return err
	}
	testCtx.Scanner = s
	return nil
}

func (testCtx *TestContext) aStreamScannerWithPermissionDenied(surface string) error {
	return testCtx.newStreamScanner(surface, capturetest.Denied{})
}

func (testCtx *TestContext) aStreamScannerWithoutCamera(surface string) error {
	return testCtx.newStreamScanner(surface, capturetest.Unavailable{})
}

func (testCtx *TestContext) aStreamScannerShowingQR(surface, text string) error {
	qr, err := testutil.GenerateQR(text, 240)
	if err != nil {
		return err
	}
	testCtx.Static = &capturetest.Static{Frames: []image.Image{qr}}
	return testCtx.newStreamScanner(surface, testCtx.Static)
}

func (testCtx *TestContext) aStreamScannerAwaitingPermission(surface, text string) error {
	qr, err := testutil.GenerateQR(text, 240)
	if err != nil {
		return err
	}
	testCtx.Gated = &capturetest.Gated{Frames: []image.Image{qr}}
	return testCtx.newStreamScanner(surface, testCtx.Gated)
}

func (testCtx *TestContext) iStartAStreamScanOn(surface string) error {
	testCtx.LastErr = testCtx.Scanner.StartStreamScan(surface, nil)
	if testCtx.Gated != nil && testCtx.LastErr == nil {
		select {
		case <-testCtx.Gated.Started():
		case <-time.After(waitTimeout):
			return errors.New("camera was never asked for permission")
		}
	}
	return nil
}

func (testCtx *TestContext) iStopTheStreamScan() error {
	testCtx.Scanner.StopStreamScan()
	return nil
}

func (testCtx *TestContext) cameraPermissionIsGranted() error {
	testCtx.Gated.Grant()
	return nil
}

func (testCtx *TestContext) theStreamScanShouldBeRejectedWith(code string) error {
	if got := scanerr.CodeOf(testCtx.LastErr); string(got) != code {
		return fmt.Errorf("expected start to fail with %s, got %v", code, testCtx.LastErr)
	}
	return nil
}

func (testCtx *TestContext) theSessionShouldEnd(state string) error {
	deadline := time.Now().Add(waitTimeout)
	for {
		got := testCtx.Scanner.Session().State().String()
		if got == state {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("session state is %s, expected %s", got, state)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (testCtx *TestContext) theCameraShouldHaveBeenReleased() error {
	deadline := time.Now().Add(waitTimeout)
	for time.Now().Before(deadline) {
		if r := testCtx.grantedResource(); r != nil && r.Released() {
			return nil
		}
		time.Sleep(5 * time.Millisecond)
	}
	return errors.New("camera resource was not released")
}

func (testCtx *TestContext) grantedResource() *capturetest.Resource {
	switch {
	case testCtx.Gated != nil:
		return testCtx.Gated.Resource()
	case testCtx.Static != nil:
		if rs := testCtx.Static.Resources(); len(rs) > 0 {
			return rs[len(rs)-1]
		}
	}
	return nil
}

// RegisterStreamSteps registers stream scanning steps.
func (testCtx *TestContext) RegisterStreamSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a stream scanner for surface "([^"]*)" with camera permission denied$`, testCtx.aStreamScannerWithPermissionDenied)
	sc.Step(`^a stream scanner for surface "([^"]*)" without a camera$`, testCtx.aStreamScannerWithoutCamera)
	sc.Step(`^a stream scanner for surface "([^"]*)" whose camera shows a QR code encoding "([^"]*)"$`, testCtx.aStreamScannerShowingQR)
	sc.Step(`^a stream scanner for surface "([^"]*)" whose camera awaits permission and shows "([^"]*)"$`, testCtx.aStreamScannerAwaitingPermission)
	sc.Step(`^I start a stream scan on "([^"]*)"$`, testCtx.iStartAStreamScanOn)
	sc.Step(`^I stop the stream scan$`, testCtx.iStopTheStreamScan)
	sc.Step(`^camera permission is granted$`, testCtx.cameraPermissionIsGranted)
	sc.Step(`^the stream scan should be rejected with "([^"]*)"$`, testCtx.theStreamScanShouldBeRejectedWith)
	sc.Step(`^the session should end "([^"]*)"$`, testCtx.theSessionShouldEnd)
	sc.Step(`^the camera should have been released$`, testCtx.theCameraShouldHaveBeenReleased)
}
