package component

import "image/color"

// Appearance is the debug-draw fill color of an entity's collider.
type Appearance struct {
	Color color.Color
}

var AppearanceComponent = NewComponent[Appearance]()
