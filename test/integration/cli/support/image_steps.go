package support

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/codescan/internal/scanner"
	"github.com/MeKo-Tech/codescan/internal/testutil"
)

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (testCtx *TestContext) aWhiteImage(name string, width, height int) error {
	data, err := encodePNG(testutil.Solid(width, height, color.White))
	if err != nil {
		return err
	}
	return testCtx.writeFile(name, data)
}

func (testCtx *TestContext) aQRCodeImage(name, text string) error {
	qr, err := testutil.GenerateQR(text, 300)
	if err != nil {
		return err
	}
	data, err := encodePNG(qr)
	if err != nil {
		return err
	}
	return testCtx.writeFile(name, data)
}

func (testCtx *TestContext) aCode128Image(name, text string) error {
	bc, err := testutil.GenerateCode128(text, 800, 200)
	if err != nil {
		return err
	}
	data, err := encodePNG(bc)
	if err != nil {
		return err
	}
	return testCtx.writeFile(name, data)
}

func (testCtx *TestContext) aFileWithContent(name, content string) error {
	return testCtx.writeFile(name, []byte(content))
}

func (testCtx *TestContext) aScannerWithImageScanning() error {
	s, err := scanner.New(&scanner.Host{EnableImage: true, Sink: testCtx.Recorder}, scanner.DefaultConfig())
	if err != nil {
		return err
	}
	testCtx.Scanner = s
	return nil
}

func (testCtx *TestContext) iStartAnImageScanOf(name string) error {
	if testCtx.Scanner == nil {
		return fmt.Errorf("no scanner configured")
	}
	testCtx.LastResult = testCtx.Scanner.StartImageFile(testCtx.path(name))
	return nil
}

func (testCtx *TestContext) iStartAnImageScanWithNoFile() error {
	if testCtx.Scanner == nil {
		return fmt.Errorf("no scanner configured")
	}
	testCtx.LastResult = testCtx.Scanner.StartImageFile("")
	return nil
}

// RegisterImageSteps registers still image steps.
func (testCtx *TestContext) RegisterImageSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a white image "([^"]*)" of (\d+)x(\d+) pixels$`, testCtx.aWhiteImage)
	sc.Step(`^a QR code image "([^"]*)" encoding "([^"]*)"$`, testCtx.aQRCodeImage)
	sc.Step(`^a Code 128 image "([^"]*)" encoding "([^"]*)"$`, testCtx.aCode128Image)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileWithContent)
	sc.Step(`^a scanner with image scanning enabled$`, testCtx.aScannerWithImageScanning)
	sc.Step(`^I start an image scan of "([^"]*)"$`, testCtx.iStartAnImageScanOf)
	sc.Step(`^I start an image scan without selecting a file$`, testCtx.iStartAnImageScanWithNoFile)
}
