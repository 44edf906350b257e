package component

import "github.com/milk9111/platformkit/platform"

// Carrier lets a platform move the bodies that rest on it.
type Carrier struct {
	Filter    platform.ContactFilter
	Tolerance float64

	Runtime *platform.Carrier
}

var CarrierComponent = NewComponent[Carrier]()
