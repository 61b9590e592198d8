package states

import (
	"encoding/json"

	"github.com/emberhome/devices-core/internal/catalog"
	"github.com/emberhome/devices-core/internal/infrastructure/mqtt"
)

// Broadcaster republishes state change events retained on the property
// state topics so bus subscribers always see the current record. Deleted
// events publish an empty retained payload, which clears the topic on the
// broker.
//
// Attach it to a manager with manager.Subscribe(broadcaster.Listener()).
type Broadcaster struct {
	bus        BusClient
	entityKind catalog.EntityKind
	topics     mqtt.Topics
	logger     Logger
}

// NewBroadcaster creates a broadcaster for one entity kind.
func NewBroadcaster(bus BusClient, kind catalog.EntityKind) *Broadcaster {
	return &Broadcaster{bus: bus, entityKind: kind, logger: noopLogger{}}
}

// SetLogger sets the logger for the broadcaster.
func (b *Broadcaster) SetLogger(logger Logger) {
	b.logger = logger
}

// Listener returns the event listener to subscribe on a manager. Publish
// failures are logged and dropped; state broadcasting is best-effort.
func (b *Broadcaster) Listener() Listener {
	return func(ev Event) {
		topic := b.topics.PropertyState(string(b.entityKind), ev.PropertyID)

		if ev.Type == EventDeleted {
			if err := b.bus.Publish(topic, nil, actionQOS, true); err != nil {
				b.logger.Warn("clearing state topic failed", "topic", topic, "error", err)
			}
			return
		}

		payload, err := json.Marshal(ev.State)
		if err != nil {
			b.logger.Error("encoding state broadcast failed", "property", ev.PropertyID, "error", err)
			return
		}
		if err := b.bus.Publish(topic, payload, actionQOS, true); err != nil {
			b.logger.Warn("state broadcast failed", "topic", topic, "error", err)
		}
	}
}
