// Package state provides an in-memory, per-chat session store for Telegram bots.
// The stored value is chosen by the bot; the store only guarantees that
// updates for one chat are serialized and never block other chats.
package state
