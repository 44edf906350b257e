package common

import "time"

// World units are meters with y pointing up; the sandbox scales them to
// pixels when drawing.
const (
	Gravity     = -20.0
	FixedDT     = 1.0 / 60.0
	PixelsPerM  = 32.0
	SolverIters = 20
)

// FixedStep is FixedDT as a wall-clock interval for real-time loops.
const FixedStep = time.Second / 60
