package component

// Visibility is recomputed each frame against the camera view.
type Visibility struct {
	Visible bool
	// Margin grows the entity's bounds before testing them.
	Margin float64
}

var VisibilityComponent = NewComponent[Visibility]()
