package mqtt

import "fmt"

// Topic prefixes for the devices-core MQTT namespace.
//
// Action topics carry GET/SET requests toward whichever process owns a
// property's ground truth. State topics carry the resulting authoritative
// state records, retained so late subscribers see the current value.
const (
	// TopicPrefix is the base for all devices-core topics.
	TopicPrefix = "emberhome"

	// TopicPrefixAction is the base for property action topics.
	TopicPrefixAction = "emberhome/action"

	// TopicPrefixState is the base for property state broadcast topics.
	TopicPrefixState = "emberhome/state"

	// TopicPrefixSystem is the base for system topics.
	TopicPrefixSystem = "emberhome/system"
)

// Topics provides builders for devices-core MQTT topics.
// Using these helpers ensures consistent topic naming across the codebase.
//
//	topics := mqtt.Topics{}
//	setTopic := topics.PropertyAction("channel", propertyID, "set")
//	// Returns: "emberhome/action/channel/<property-id>/set"
type Topics struct{}

// PropertyAction returns the topic for a GET or SET action on a property.
//
// Example: emberhome/action/channel/0197e9cf-.../set
func (Topics) PropertyAction(entityKind, propertyID, action string) string {
	return fmt.Sprintf("%s/%s/%s/%s", TopicPrefixAction, entityKind, propertyID, action)
}

// PropertyState returns the broadcast topic for a property's state record.
// Published retained so new subscribers immediately receive the current state.
//
// Example: emberhome/state/device/0197e9cf-...
func (Topics) PropertyState(entityKind, propertyID string) string {
	return fmt.Sprintf("%s/%s/%s", TopicPrefixState, entityKind, propertyID)
}

// SystemStatus returns the service status topic (online/offline, LWT).
//
// Example: emberhome/system/status
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/status", TopicPrefixSystem)
}

// AllPropertyActions returns a pattern matching all actions for an entity kind.
//
// Pattern: emberhome/action/channel/+/+
func (Topics) AllPropertyActions(entityKind string) string {
	return fmt.Sprintf("%s/%s/+/+", TopicPrefixAction, entityKind)
}

// AllPropertyStates returns a pattern matching all property state broadcasts.
//
// Pattern: emberhome/state/+/+
func (Topics) AllPropertyStates() string {
	return fmt.Sprintf("%s/+/+", TopicPrefixState)
}

// AllTopics returns a pattern matching all devices-core topics.
// Use with caution - this receives ALL traffic.
//
// Pattern: emberhome/#
func (Topics) AllTopics() string {
	return TopicPrefix + "/#"
}
