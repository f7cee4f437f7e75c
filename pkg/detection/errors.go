package detection

import "errors"

var (
	// ErrModelNotFound is returned when the model file does not exist.
	ErrModelNotFound = errors.New("detection: model file not found")

	// ErrModelLoad is returned when the model cannot be loaded.
	ErrModelLoad = errors.New("detection: failed to load model")

	// ErrEmptyFrame is returned for frames without an image.
	ErrEmptyFrame = errors.New("detection: empty frame")

	// ErrBadOutput is returned when the output tensor does not match the layout.
	ErrBadOutput = errors.New("detection: unexpected output shape")

	// ErrUnknownLayout is returned by ParseLayout.
	ErrUnknownLayout = errors.New("detection: unknown output layout")
)
