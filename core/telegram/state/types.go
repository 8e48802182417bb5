package state

// Manager orchestrates per-chat sessions holding a value of type T.
type Manager[T any] interface {
	// Get returns the chat's value, or the initial value for unknown chats.
	Get(chatID int64) T
	// Set replaces the chat's value, creating the session if necessary.
	Set(chatID int64, value T)
	// Update applies fn to the chat's value under the chat's lock and stores
	// the returned value.
	Update(chatID int64, fn func(current T) T) T
	// Clear removes the chat's session.
	Clear(chatID int64)
	// Len reports the number of live sessions.
	Len() int
}
