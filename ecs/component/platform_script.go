package component

// PlatformScript binds a tengo script to a platform entity.
type PlatformScript struct {
	Path string
}

var PlatformScriptComponent = NewComponent[PlatformScript]()
