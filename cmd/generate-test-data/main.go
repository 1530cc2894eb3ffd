package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/codescan/internal/testutil"
)

// fixture records what a generated image must scan to.
type fixture struct {
	File   string `json:"file"`
	Format string `json:"format,omitempty"`
	Text   string `json:"text,omitempty"`
	Error  string `json:"error,omitempty"`
}

type sample struct {
	fixture
	build func() (image.Image, error)
}

func main() {
	// Set up structured logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		outDir  = flag.String("out", "testdata", "output directory, relative to the project root")
		verbose = flag.Bool("v", false, "Verbose output")
		help    = flag.Bool("h", false, "Show help")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [OPTIONS]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Generate barcode fixture images for codescan testing.\n\n")
		fmt.Fprintf(os.Stderr, "OPTIONS:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	if *help {
		flag.Usage()
		return
	}

	root, err := testutil.GetProjectRoot()
	if err != nil {
		slog.Error("Failed to find project root", "error", err)
		os.Exit(1)
	}
	dir := *outDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(root, dir)
	}

	if err := generate(dir, *verbose); err != nil {
		slog.Error("Failed to generate test data", "error", err)
		os.Exit(1)
	}
	slog.Info("Test data generation completed", "dir", dir)
}

func samples() []sample {
	return []sample{
		{fixture{File: "images/qr_hello.png", Format: "qr", Text: "hello codescan"}, func() (image.Image, error) {
			return testutil.GenerateQR("hello codescan", 320)
		}},
		{fixture{File: "images/qr_url_large.png", Format: "qr", Text: "https://example.com/item/42"}, func() (image.Image, error) {
			qr, err := testutil.GenerateQR("https://example.com/item/42", 480)
			if err != nil {
				return nil, err
			}
			return testutil.OnCanvas(qr, 1920, 1440), nil
		}},
		{fixture{File: "images/code128_sku.png", Format: "code128", Text: "SKU-000123"}, func() (image.Image, error) {
			return testutil.GenerateCode128("SKU-000123", 600, 160)
		}},
		{fixture{File: "images/ean13_product.png", Format: "ean13", Text: "4006381333931"}, func() (image.Image, error) {
			return testutil.GenerateEAN13("400638133393", 480, 200)
		}},
		{fixture{File: "images/blank.png", Error: "ERR_NOT_DETECTED"}, func() (image.Image, error) {
			return testutil.Solid(320, 240, color.White), nil
		}},
		{fixture{File: "images/tiny_5x5.png", Error: "ERR_IMAGE_TOO_SMALL"}, func() (image.Image, error) {
			return testutil.Solid(5, 5, color.White), nil
		}},
	}
}

func generate(dir string, verbose bool) error {
	fixtures := make([]fixture, 0)
	for _, s := range samples() {
		img, err := s.build()
		if err != nil {
			return fmt.Errorf("failed to build %s: %w", s.File, err)
		}
		path := filepath.Join(dir, s.File)
		if err := savePNG(path, img); err != nil {
			return err
		}
		if verbose {
			b := img.Bounds()
			slog.Info("Wrote image", "path", path, "width", b.Dx(), "height", b.Dy())
		}
		fixtures = append(fixtures, s.fixture)
	}

	data, err := json.MarshalIndent(fixtures, "", "  ")
	if err != nil {
		return err
	}
	fixturesPath := filepath.Join(dir, "fixtures", "expected.json")
	if err := os.MkdirAll(filepath.Dir(fixturesPath), 0o755); err != nil {
		return fmt.Errorf("failed to create fixtures directory: %w", err)
	}
	return os.WriteFile(fixturesPath, data, 0o600)
}

func savePNG(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	file, err := os.Create(path) //nolint:gosec // G304: Test data generation uses controlled paths
	if err != nil {
		return fmt.Errorf("failed to create image file: %w", err)
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to save image: %w", err)
	}
	return file.Close()
}
