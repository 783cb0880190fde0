package realtime

import (
	"go.uber.org/zap"
)

// Dispatcher is the fan-out surface the request handlers use after a
// successful write. Delivery is best effort: events are written to whatever
// connections are registered at dispatch time and never queued or retried;
// persisted state remains the source of truth for clients that miss one.
type Dispatcher struct {
	hub *Hub
	log *zap.SugaredLogger
}

func NewDispatcher(hub *Hub, log *zap.SugaredLogger) *Dispatcher {
	return &Dispatcher{hub: hub, log: log}
}

// BroadcastToAll delivers an event to every authenticated connection. Writes
// onto closed transports are dropped; the connection's own reader cleans up.
func (d *Dispatcher) BroadcastToAll(event Event) {
	message := event.Marshal()
	clients := d.hub.AllConnections()
	for _, c := range clients {
		// a failed write is dropped; the connection's reader cleans up
		c.Send(message)
	}
	d.log.Debugw("broadcast event", "type", event["type"], "connections", len(clients))
}

// NotifyUser delivers an event to every connection registered for userID.
// Zero connections (user offline) is not an error; the event is dropped.
func (d *Dispatcher) NotifyUser(userID string, event Event) {
	message := event.Marshal()
	for _, c := range d.hub.ConnectionsFor(userID) {
		c.Send(message)
	}
}

// PostCreated broadcasts a newly created top-level post. Replies are not
// broadcast to the feed; they surface as notifications instead.
func (d *Dispatcher) PostCreated(post any) {
	d.BroadcastToAll(NewPostEvent(post))
}

func (d *Dispatcher) PostEdited(post any) {
	d.BroadcastToAll(PostEditedEvent(post))
}

func (d *Dispatcher) PostDeleted(postID string) {
	d.BroadcastToAll(PostDeletedEvent(postID))
}

func (d *Dispatcher) MessageSent(recipientID string, message any) {
	d.NotifyUser(recipientID, NewMessageEvent(message))
}

func (d *Dispatcher) NotificationCreated(userID string, notification any) {
	d.NotifyUser(userID, NotificationEvent(notification))
}
