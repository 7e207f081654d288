// Package validation provides input validation functions.
package validation

import (
	"errors"
	"regexp"
	"strings"
)

var (
	// ErrInvalidEmail is returned when an email address is malformed.
	ErrInvalidEmail = errors.New("invalid email: must be a valid address")
	// ErrInvalidFolderName is returned when a folder name is empty or
	// contains characters no backend can represent.
	ErrInvalidFolderName = errors.New("invalid folder name")
	// ErrInvalidAccountName is returned when an account name is empty or
	// contains characters unsafe for use as a config map key / cache path
	// component.
	ErrInvalidAccountName = errors.New("invalid account name: must be 1-64 characters, alphanumeric, dot, hyphen, underscore")
)

const (
	maxEmailLength      = 254 // RFC 5321 §4.5.3.1.3
	maxFolderNameLength = 1000
	minAccountLength    = 1
	maxAccountLength    = 64
)

var (
	// RFC 5322 compliant-enough local-part@domain pattern (simplified for
	// the common case; full RFC 5322 grammar is not worth the false sense
	// of precision here).
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	accountNamePattern = regexp.MustCompile(`^[a-zA-Z0-9._-]+$`)
)

// Email checks that addr looks like a valid email address.
func Email(addr string) error {
	addr = strings.TrimSpace(addr)
	if len(addr) == 0 || len(addr) > maxEmailLength {
		return ErrInvalidEmail
	}
	if !emailPattern.MatchString(addr) {
		return ErrInvalidEmail
	}
	if strings.Contains(addr, "..") {
		return ErrInvalidEmail
	}
	return nil
}

// FolderName checks that name is non-empty, within length limits, and free
// of control characters. Backends enforce their own additional constraints
// (IMAP UTF-7 hierarchy separators, Maildir path safety) beyond this.
func FolderName(name string) error {
	if len(name) == 0 || len(name) > maxFolderNameLength {
		return ErrInvalidFolderName
	}
	for _, r := range name {
		if r < 0x20 || r == 0x7f {
			return ErrInvalidFolderName
		}
	}
	return nil
}

// AccountName checks that name is safe to use as a config key and as a
// path component under the sync cache directory.
func AccountName(name string) error {
	if len(name) < minAccountLength || len(name) > maxAccountLength {
		return ErrInvalidAccountName
	}
	if !accountNamePattern.MatchString(name) {
		return ErrInvalidAccountName
	}
	return nil
}
