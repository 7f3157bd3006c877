package mqtt

// Availability payloads, retained on the availability topic.
const (
	PayloadOnline  = "online"
	PayloadOffline = "offline"
)

// availabilitySuffix is appended to the topic prefix.
const availabilitySuffix = "switchbot-mqtt/status"

// AvailabilityTopic returns the topic the bridge reports its own
// online/offline status on.
//
// Example: homeassistant/switchbot-mqtt/status
func AvailabilityTopic(prefix string) string {
	return prefix + availabilitySuffix
}
