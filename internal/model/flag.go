package model

// Flag is a single message state marker. Custom carries a backend-defined
// tag (an IMAP keyword, a Notmuch tag, a Maildir non-standard letter is not
// representable and is dropped by that adapter).
type Flag struct {
	tag    flagTag
	custom string
}

type flagTag int

const (
	flagSeen flagTag = iota
	flagAnswered
	flagFlagged
	flagDeleted
	flagDraft
	flagCustom
)

var (
	FlagSeen     = Flag{tag: flagSeen}
	FlagAnswered = Flag{tag: flagAnswered}
	FlagFlagged  = Flag{tag: flagFlagged}
	FlagDeleted  = Flag{tag: flagDeleted}
	FlagDraft    = Flag{tag: flagDraft}
)

// FlagCustom returns a Flag wrapping a backend-defined tag string.
func FlagCustom(tag string) Flag {
	return Flag{tag: flagCustom, custom: tag}
}

// IsDeleted reports whether this is the Deleted flag, which the flag-merge
// rules treat specially (removal wins, to avoid resurrecting user-deleted
// mail).
func (f Flag) IsDeleted() bool { return f.tag == flagDeleted }

// Key returns a value suitable for use as a map key, stable across equal
// flags including custom ones.
func (f Flag) Key() string {
	switch f.tag {
	case flagSeen:
		return "\\Seen"
	case flagAnswered:
		return "\\Answered"
	case flagFlagged:
		return "\\Flagged"
	case flagDeleted:
		return "\\Deleted"
	case flagDraft:
		return "\\Draft"
	default:
		return f.custom
	}
}

func (f Flag) String() string { return f.Key() }

// FlagSet is an unordered collection of flags; equality is set equality.
type FlagSet map[string]Flag

// NewFlagSet builds a FlagSet from a list of flags.
func NewFlagSet(flags ...Flag) FlagSet {
	fs := make(FlagSet, len(flags))
	for _, f := range flags {
		fs[f.Key()] = f
	}
	return fs
}

// Add inserts f into the set, idempotently.
func (fs FlagSet) Add(f Flag) {
	fs[f.Key()] = f
}

// Remove deletes f from the set, idempotently.
func (fs FlagSet) Remove(f Flag) {
	delete(fs, f.Key())
}

// Has reports whether f is present in the set.
func (fs FlagSet) Has(f Flag) bool {
	_, ok := fs[f.Key()]
	return ok
}

// Equal reports set equality between two flag sets.
func (fs FlagSet) Equal(other FlagSet) bool {
	if len(fs) != len(other) {
		return false
	}
	for k := range fs {
		if _, ok := other[k]; !ok {
			return false
		}
	}
	return true
}

// Clone returns an independent copy of the set.
func (fs FlagSet) Clone() FlagSet {
	out := make(FlagSet, len(fs))
	for k, v := range fs {
		out[k] = v
	}
	return out
}

// Slice returns the flags in the set in unspecified order.
func (fs FlagSet) Slice() []Flag {
	out := make([]Flag, 0, len(fs))
	for _, f := range fs {
		out = append(out, f)
	}
	return out
}
