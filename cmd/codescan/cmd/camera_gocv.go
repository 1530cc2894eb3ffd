//go:build gocv

package cmd

import (
	"github.com/MeKo-Tech/codescan/internal/capture"
	"github.com/MeKo-Tech/codescan/internal/capture/gocvcam"
)

func newCamera(deviceID int) (capture.MediaCapture, error) {
	return gocvcam.Camera{DeviceID: deviceID}, nil
}
