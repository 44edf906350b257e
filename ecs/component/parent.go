package component

// Parent names the entity this one is attached to.
type Parent struct {
	Name string
}

var ParentComponent = NewComponent[Parent]()
