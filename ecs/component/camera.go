package component

// Camera is a view rectangle in world units centered on X, Y.
type Camera struct {
	X          float64
	Y          float64
	Width      float64
	Height     float64
	TargetName string
	// Follow is the fraction of the distance to the target covered per
	// frame; zero snaps.
	Follow float64
}

var CameraComponent = NewComponent[Camera]()
