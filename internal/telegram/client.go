package telegram

import "context"

// Client is the surface this core needs from the Telegram client library.
// Every method that touches the network takes a context and is fallible;
// rate-limit pushback is reported as a FloodWaitError.
type Client interface {
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	IsConnected() bool

	SendMessage(ctx context.Context, chatID string, text string) error
	ForwardMessage(ctx context.Context, toChatID string, messageID int, fromChatID string) error
	DeleteMessage(ctx context.Context, chatID string, messageID int) error
	GetContacts(ctx context.Context) ([]Contact, error)
	GetEntity(ctx context.Context, chatID string) (Entity, error)
	InviteToGroup(ctx context.Context, groupID string, userID string) error
	MarkRead(ctx context.Context, chatID string) error
}

// Entity is a resolved chat, channel or user.
type Entity struct {
	ID        int64  `json:"id"`
	Title     string `json:"title"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
	Kind      string `json:"type"` // User, Chat, Channel
}

// EntitySummary is the normalized record exposed by batched info lookups.
type EntitySummary struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Username string `json:"username,omitempty"`
	Kind     string `json:"type"`
}

// Summary normalizes the heterogeneous entity shapes: chats and channels
// carry a title, users only a first name.
func (e Entity) Summary() EntitySummary {
	title := e.Title
	if title == "" {
		title = e.FirstName
	}
	if title == "" {
		title = "Unknown"
	}
	return EntitySummary{ID: e.ID, Title: title, Username: e.Username, Kind: e.Kind}
}

// Contact is one address-book entry.
type Contact struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Username  string `json:"username"`
	Phone     string `json:"phone"`
	IsBot     bool   `json:"is_bot"`
}
