package bus

// Notification is an operator message; ChatID 0 means the notifier's default chat.
type Notification struct {
	ChatID int64
	Text   string
}
