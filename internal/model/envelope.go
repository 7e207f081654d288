package model

import "time"

// Mailbox is a single address with an optional display name.
type Mailbox struct {
	Name string
	Addr string
}

// String renders the mailbox as "Name <addr>" or just "addr" when Name is
// empty.
func (m Mailbox) String() string {
	if m.Name == "" {
		return m.Addr
	}
	return m.Name + " <" + m.Addr + ">"
}

// Envelope is the ephemeral metadata view of a message. Re-reading after a
// mutation may yield a different ID (Maildir renames on flag change); only
// MessageID is stable across moves and backends.
type Envelope struct {
	ID        string
	MessageID string
	Subject   string
	From      Mailbox
	To        []Mailbox
	Date      time.Time
	Flags     FlagSet

	// InReplyTo and References support thread reconstruction when a
	// backend cannot supply a native THREAD response.
	InReplyTo string
	References []string
}

// Message is a byte buffer of RFC 5322 content. It has no in-memory
// mutation API: edits go through the MML compiler (internal/mml) to
// produce a fresh buffer.
type Message struct {
	Raw []byte
}
