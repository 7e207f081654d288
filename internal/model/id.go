// Package model defines the backend-agnostic value types shared by every
// part of mailcore: folders, envelopes, flags, messages, and account
// configuration. Types here carry no I/O and no backend-specific state.
package model

// ID is an opaque, backend-scoped identifier for one or more messages.
// IMAP backends batch UIDs into a single ID; Maildir and Notmuch backends
// typically iterate over single-valued IDs, since their native handles
// (filenames, message-ids) don't compose into ranges the way IMAP UID sets
// do.
type ID struct {
	values []string
}

// SingleID returns an ID wrapping exactly one value.
func SingleID(v string) ID {
	return ID{values: []string{v}}
}

// MultipleID returns an ID wrapping a batch of values.
func MultipleID(vs ...string) ID {
	out := make([]string, len(vs))
	copy(out, vs)
	return ID{values: out}
}

// IsSingle reports whether the ID wraps exactly one value.
func (id ID) IsSingle() bool {
	return len(id.values) == 1
}

// Single returns the sole wrapped value and true, or "" and false if the
// ID does not wrap exactly one value.
func (id ID) Single() (string, bool) {
	if len(id.values) != 1 {
		return "", false
	}
	return id.values[0], true
}

// Values returns the wrapped values in order. The returned slice must not
// be mutated by the caller.
func (id ID) Values() []string {
	return id.values
}

// Len returns the number of wrapped values.
func (id ID) Len() int {
	return len(id.values)
}

// Empty reports whether the ID wraps no values.
func (id ID) Empty() bool {
	return len(id.values) == 0
}
