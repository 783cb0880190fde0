package realtime

import "encoding/json"

// Frame type tags on the wire.
const (
	TypeAuth        = "auth"
	TypePing        = "ping"
	TypeAuthSuccess = "auth_success"
	TypeAuthError   = "auth_error"
	TypePong        = "pong"
	TypeError       = "error"

	TypeNewPost      = "new_post"
	TypePostEdited   = "post_edited"
	TypePostDeleted  = "post_deleted"
	TypeNewMessage   = "new_message"
	TypeNotification = "notification"
)

// Event is one outbound JSON frame. Events are built once, marshaled once,
// and never retained after dispatch.
type Event map[string]any

func (e Event) Marshal() []byte {
	bytes, err := json.Marshal(e)
	if err != nil {
		// Payloads are plain structs and maps; this cannot fail in practice.
		return []byte(`{"type":"error","message":"encoding failed"}`)
	}
	return bytes
}

func AuthSuccessEvent() Event {
	return Event{"type": TypeAuthSuccess, "message": "Authenticated successfully"}
}

func AuthErrorEvent() Event {
	return Event{"type": TypeAuthError, "message": "Authentication failed"}
}

func PongEvent() Event {
	return Event{"type": TypePong}
}

func ErrorEvent(message string) Event {
	return Event{"type": TypeError, "message": message}
}

func NewPostEvent(post any) Event {
	return Event{"type": TypeNewPost, "post": post}
}

func PostEditedEvent(post any) Event {
	return Event{"type": TypePostEdited, "post": post}
}

func PostDeletedEvent(postID string) Event {
	return Event{"type": TypePostDeleted, "postId": postID}
}

func NewMessageEvent(message any) Event {
	return Event{"type": TypeNewMessage, "message": message}
}

func NotificationEvent(notification any) Event {
	return Event{"type": TypeNotification, "notification": notification}
}
