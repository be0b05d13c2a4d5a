package pipeline

import "errors"

var (
	ErrInputNotFound = errors.New("input file not found")
	ErrDecode        = errors.New("cannot decode image")
	ErrInference     = errors.New("background removal failed")
	ErrWrite         = errors.New("cannot write output")
	ErrQuality       = errors.New("invalid quality")
)
