package worker

import (
	"image"

	"github.com/xianai/xianworker/pkg/capture"
	"github.com/xianai/xianworker/pkg/geom"
)

// ScreenCapturer 基于真实屏幕的截取实现
type ScreenCapturer struct{}

func (ScreenCapturer) CaptureFull() (image.Image, error) {
	return capture.CaptureScreen()
}

func (ScreenCapturer) CaptureRegion(r geom.Rect) (image.Image, error) {
	return capture.CaptureRegion(r)
}
