package model

import "strings"

// FolderKind tags the well-known role of a folder. UserDefined carries the
// alias the user configured for it; Other covers everything else.
type FolderKind struct {
	tag   folderKindTag
	alias string
}

type folderKindTag int

const (
	folderKindOther folderKindTag = iota
	folderKindInbox
	folderKindSent
	folderKindDrafts
	folderKindTrash
	folderKindUserDefined
)

var (
	KindInbox  = FolderKind{tag: folderKindInbox}
	KindSent   = FolderKind{tag: folderKindSent}
	KindDrafts = FolderKind{tag: folderKindDrafts}
	KindTrash  = FolderKind{tag: folderKindTrash}
	KindOther  = FolderKind{tag: folderKindOther}
)

// KindUserDefined returns a FolderKind carrying the given user alias.
func KindUserDefined(alias string) FolderKind {
	return FolderKind{tag: folderKindUserDefined, alias: alias}
}

// IsInbox reports whether this is the Inbox kind.
func (k FolderKind) IsInbox() bool { return k.tag == folderKindInbox }

// IsUserDefined reports whether this kind carries a user-facing alias.
func (k FolderKind) IsUserDefined() bool { return k.tag == folderKindUserDefined }

// Alias returns the user-defined alias, or "" if this kind isn't
// user-defined.
func (k FolderKind) Alias() string { return k.alias }

func (k FolderKind) String() string {
	switch k.tag {
	case folderKindInbox:
		return "Inbox"
	case folderKindSent:
		return "Sent"
	case folderKindDrafts:
		return "Drafts"
	case folderKindTrash:
		return "Trash"
	case folderKindUserDefined:
		return "UserDefined(" + k.alias + ")"
	default:
		return "Other"
	}
}

// Folder is a mail container identified by its canonical, alias-resolved
// name. Hierarchy levels are separated by "/"; backends encode that
// separator however they need to (UTF-7 for IMAP, URL-encoding for
// filenames).
type Folder struct {
	Name string
	Kind FolderKind
	Desc string
}

// Equal reports whether two folders are the same after both names have
// already been alias-resolved by the caller (spec invariant: folder
// equality is name equality post-resolution).
func (f Folder) Equal(other Folder) bool {
	return f.Name == other.Name
}

// FolderAliases maps user-facing aliases to canonical folder names. Lookup
// is applied at every folder-typed argument boundary; it never mutates the
// canonical name itself, only how it is found.
type FolderAliases struct {
	toCanonical map[string]string
}

// NewFolderAliases builds a FolderAliases table from an alias->canonical
// mapping. Lookups are case-insensitive on the alias side.
func NewFolderAliases(aliases map[string]string) FolderAliases {
	fa := FolderAliases{toCanonical: make(map[string]string, len(aliases))}
	for alias, canonical := range aliases {
		fa.toCanonical[strings.ToLower(alias)] = canonical
	}
	return fa
}

// Resolve maps a user-facing folder name to its canonical name. Inbox is
// recognized case-insensitively regardless of the alias table; anything
// else falls through to the alias table, then to the input unchanged.
func (fa FolderAliases) Resolve(name string) string {
	if strings.EqualFold(name, "INBOX") {
		return "INBOX"
	}
	if canonical, ok := fa.toCanonical[strings.ToLower(name)]; ok {
		return canonical
	}
	return name
}

// ClassifyKind infers the FolderKind for a canonical folder name given the
// alias table used to resolve it. Inbox, Sent ("sent", "sent items",
// "sent mail"), Drafts ("drafts") and Trash ("trash", "deleted items",
// "deleted messages") are recognized case-insensitively; any other name
// that appears as an alias target becomes UserDefined, and the rest Other.
func ClassifyKind(canonicalName string, aliases map[string]string) FolderKind {
	if strings.EqualFold(canonicalName, "INBOX") {
		return KindInbox
	}
	lower := strings.ToLower(canonicalName)
	switch lower {
	case "sent", "sent items", "sent mail":
		return KindSent
	case "drafts":
		return KindDrafts
	case "trash", "deleted items", "deleted messages":
		return KindTrash
	}
	for alias, canonical := range aliases {
		if canonical == canonicalName {
			return KindUserDefined(alias)
		}
	}
	return KindOther
}

// FolderFilter selects which folders a sync run (or a listing call)
// considers. The zero value (All) includes every folder.
type FolderFilter struct {
	Mode    FolderFilterMode
	Folders map[string]struct{}
}

type FolderFilterMode int

const (
	FolderFilterAll FolderFilterMode = iota
	FolderFilterInclude
	FolderFilterExclude
)

// Includes reports whether the filter accepts the given canonical folder
// name.
func (f FolderFilter) Includes(name string) bool {
	switch f.Mode {
	case FolderFilterInclude:
		_, ok := f.Folders[name]
		return ok
	case FolderFilterExclude:
		_, ok := f.Folders[name]
		return !ok
	default:
		return true
	}
}
