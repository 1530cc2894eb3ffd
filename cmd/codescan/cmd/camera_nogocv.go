//go:build !gocv

package cmd

import (
	"errors"

	"github.com/MeKo-Tech/codescan/internal/capture"
)

func newCamera(int) (capture.MediaCapture, error) {
	return nil, errors.New("camera capture requires a build with -tags gocv")
}
