//go:build windows

package core

import "errors"

var ErrOnnxNotSupportedOnWindows = errors.New("ONNX models are not supported on Windows")

func LoadOnnxPipeline(modelDir string) (Model, error) {
	return nil, ErrOnnxNotSupportedOnWindows
}
