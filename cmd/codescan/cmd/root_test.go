package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/codescan/internal/testutil"
)

type result struct {
	code   int
	stdout string
	stderr string
}

func run(t *testing.T, args ...string) result {
	t.Helper()
	var out, errOut bytes.Buffer
	code := ExecuteContext(context.Background(), args, &out, &errOut)
	return result{code: code, stdout: out.String(), stderr: errOut.String()}
}

func writeQR(t *testing.T, dir, name, text string) string {
	t.Helper()
	return testutil.WriteFile(t, dir, name, testutil.EncodePNG(t, testutil.MustQR(t, text, 240)))
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "codescan", root.Use)
	assert.NotEmpty(t, root.Short)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"image", "stream", "formats", "config", "bench"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	res := run(t, "--help")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "Available Commands:")
	assert.Contains(t, res.stdout, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	res := run(t, "--version")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "codescan version")
}

func TestRootCommandInvalidFlag(t *testing.T) {
	res := run(t, "--no-such-flag")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "unknown flag")
}

func TestFormatsCommand(t *testing.T) {
	res := run(t, "formats")
	require.Equal(t, 0, res.code)
	assert.Contains(t, res.stdout, "qr (default)")
	assert.Contains(t, res.stdout, "qr-goqr\n")
	assert.Contains(t, res.stdout, "Default strategy: upca, ean13")
}

func TestImageCommand_Text(t *testing.T) {
	dir := t.TempDir()
	path := writeQR(t, dir, "hello.png", "hello world")

	res := run(t, "image", path)
	require.Equal(t, 0, res.code, res.stderr)
	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	assert.Equal(t, []string{
		path + ": start",
		path + ": detect qr hello world",
		path + ": stop",
	}, lines)
}

func TestImageCommand_JSON(t *testing.T) {
	dir := t.TempDir()
	a := writeQR(t, dir, "a.png", "first")
	b := writeQR(t, dir, "b.png", "second")

	res := run(t, "image", "--format", "json", "--workers", "2", a, b)
	require.Equal(t, 0, res.code, res.stderr)

	values := map[string]string{}
	sc := bufio.NewScanner(strings.NewReader(res.stdout))
	n := 0
	for sc.Scan() {
		var rec struct {
			Source  string `json:"source"`
			Event   string `json:"event"`
			Payload *struct {
				Success bool   `json:"success"`
				Value   string `json:"value"`
			} `json:"payload"`
		}
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		n++
		if rec.Event == "detect" {
			require.NotNil(t, rec.Payload)
			assert.True(t, rec.Payload.Success)
			values[rec.Source] = rec.Payload.Value
		}
	}
	assert.Equal(t, 6, n)
	assert.Equal(t, map[string]string{a: "first", b: "second"}, values)
}

func TestImageCommand_TooSmall(t *testing.T) {
	path := testutil.WriteFile(t, t.TempDir(), "tiny.png",
		testutil.EncodePNG(t, testutil.Solid(5, 5, color.White)))

	res := run(t, "image", path)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, path+": start")
	assert.Contains(t, res.stdout, "detect error ERR_IMAGE_TOO_SMALL")
	assert.Contains(t, res.stdout, path+": stop")
}

func TestImageCommand_Errors(t *testing.T) {
	res := run(t, "image")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "no input files provided")

	res = run(t, "image", "--workers", "0", "x.png")
	assert.Equal(t, 1, res.code)

	res = run(t, "image", "--format", "xml", "x.png")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "invalid output format")

	doc := testutil.WriteFile(t, t.TempDir(), "doc.pdf", []byte("%PDF-1.4"))
	res = run(t, "image", doc)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "detect error ERR_INVALID_MIME")
	assert.NotContains(t, res.stdout, "start")
}

func TestImageCommand_StrategyFlag(t *testing.T) {
	path := writeQR(t, t.TempDir(), "qr.png", "strategy")

	res := run(t, "image", "--strategy", "code128", path)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "ERR_NOT_DETECTED")

	res = run(t, "image", "--strategy", "qr-goqr", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "detect qr strategy")
}

func TestImageCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := writeQR(t, dir, "qr.png", "configured")
	cfg := testutil.WriteFile(t, dir, "codescan.yaml", []byte("scan:\n  min_dimension: 500\n  optimal_dimension: 1024\n"))

	res := run(t, "--config", cfg, "image", path)
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stdout, "ERR_IMAGE_TOO_SMALL")

	res = run(t, "--config", filepath.Join(dir, "missing.yaml"), "image", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "error loading configuration")
}

func TestConfigCommands(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "generated.yaml")

	res := run(t, "config", "init", file)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "Wrote "+file)
	_, err := os.Stat(file)
	require.NoError(t, err)

	res = run(t, "--config", file, "--log-level", "warn", "config", "show")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# "+file)
	assert.Contains(t, res.stdout, "log_level: warn")
	assert.Contains(t, res.stdout, "min_dimension: 60")
}

func TestBenchCommand(t *testing.T) {
	path := writeQR(t, t.TempDir(), "bench.png", "timed")

	res := run(t, "bench", "-n", "2", path)
	require.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "bench.png: 2 iterations")
	assert.Contains(t, res.stdout, "result timed")

	res = run(t, "bench", filepath.Join(t.TempDir(), "missing.png"))
	assert.Equal(t, 1, res.code)
}

func TestStreamCommand_FileSource(t *testing.T) {
	dir := t.TempDir()
	writeQR(t, dir, "frame.png", "streamed")

	res := run(t, "stream", "--source", dir, "--max-detections", "1", "--timeout", "10s")
	require.Equal(t, 0, res.code, res.stderr)
	assert.True(t, strings.HasPrefix(res.stdout, "stream: start\n"), res.stdout)
	assert.Contains(t, res.stdout, "stream: detect qr streamed")
	assert.True(t, strings.HasSuffix(res.stdout, "stream: stop\n"), res.stdout)
}

func TestStreamCommand_MissingSourceIsNoMedia(t *testing.T) {
	res := run(t, "stream", "--source", filepath.Join(t.TempDir(), "nothing"), "--timeout", "10s")
	assert.Equal(t, 2, res.code)
	assert.Equal(t, "stream: start\nstream: detect error ERR_NO_MEDIA\nstream: stop\n", res.stdout)
}

func TestStreamCommand_Timeout(t *testing.T) {
	dir := t.TempDir()
	testutil.WriteFile(t, dir, "blank.png", testutil.EncodePNG(t, testutil.Solid(200, 200, color.White)))

	res := run(t, "stream", "--source", dir, "--loop", "--timeout", "300ms")
	require.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "stream: start\nstream: stop\n", res.stdout)
}
