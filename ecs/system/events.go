package system

// Event types pushed on the world queue. Entity is the platform; Data is
// the waypoint index for arrivals and nil otherwise.
const (
	EventPlatformArrived = "platform_arrived"
	EventPlatformVisible = "platform_visible"
	EventPlatformStarted = "platform_started"
	EventPlatformStopped = "platform_stopped"
	EventPlatformReset   = "platform_reset"
)
