package prefabs

import "errors"

var (
	ErrUnknownMotion = errors.New("prefabs: unknown motion")
	ErrUnknownParent = errors.New("prefabs: unknown parent")
	ErrParentCycle   = errors.New("prefabs: parent cycle")
	ErrDuplicateName = errors.New("prefabs: duplicate name")
	ErrEmptyPath     = errors.New("prefabs: platform has no waypoints")
	ErrBadValue      = errors.New("prefabs: invalid value")
)
