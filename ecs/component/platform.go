package component

import (
	"github.com/jakecoffman/cp"

	"github.com/milk9111/platformkit/platform"
)

// Platform is a waypoint-driven moving platform. Waypoints are local to the
// entity's Transform at the time the follower is activated.
type Platform struct {
	Waypoints []platform.Waypoint
	Config    platform.PathConfig

	Follower *platform.PathFollower
	// Moved is this step's own displacement; Total adds what the parent
	// platform moved.
	Moved cp.Vector
	Total cp.Vector
	// Jump is a reset teleport not yet passed on to child platform frames.
	Jump cp.Vector
}

var PlatformComponent = NewComponent[Platform]()
