// Package domain contains core domain types for the instadm engine.
package domain

import (
	"encoding/json"
	"time"
)

// Identity is the platform's view of the authenticated account.
type Identity struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// StoredSession is the persisted form of a platform session: the opaque
// client state blob plus its cookie jar, sufficient to resume without
// re-entering credentials. Exactly one record lives in the "current" slot.
type StoredSession struct {
	Username  string          `json:"username"`
	UserID    string          `json:"user_id"`
	Session   json.RawMessage `json:"session"`
	Cookies   json.RawMessage `json:"cookies"`
	CreatedAt time.Time       `json:"created_at"`
}

// ConnectionStatus is a read-only projection of the engine's current state.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	Username  string `json:"username,omitempty"`
	UserID    string `json:"user_id,omitempty"`
}

// CookieEntry is a single browser cookie as exported by browser tooling.
type CookieEntry struct {
	Name     string `json:"name"`
	Value    string `json:"value"`
	Domain   string `json:"domain"`
	Path     string `json:"path"`
	Secure   bool   `json:"secure"`
	HTTPOnly bool   `json:"httpOnly"`
}

// ThreadUser is a participant in a direct-message thread.
type ThreadUser struct {
	ID         string `json:"id"`
	Username   string `json:"username"`
	FullName   string `json:"full_name,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
}

// ThreadSummary describes one inbox conversation.
type ThreadSummary struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Users       []ThreadUser `json:"users"`
	LastMessage string       `json:"last_message,omitempty"`
	Timestamp   int64        `json:"timestamp,omitempty"`
	IsGroup     bool         `json:"is_group"`
}
