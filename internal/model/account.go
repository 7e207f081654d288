package model

import "context"

// AccountConfig aggregates everything that's shared, read-only state for
// one mail account: display identity, folder aliases, per-feature sync
// sub-configs, template options, and PGP settings. It is safe for
// concurrent readers; nothing here is mutated once constructed.
type AccountConfig struct {
	Name        string
	DisplayName string
	Email       string
	Aliases     FolderAliases

	FolderSync   FolderSyncConfig
	EnvelopeSync EnvelopeSyncConfig
	FlagSync     FlagSyncConfig
	MessageSync  MessageSyncConfig

	Template TemplateConfig
	PGP      PGPConfig
	OAuth2   *OAuth2Config
}

// SyncPermissions gates whether a sync hunk of a given shape is allowed to
// run against one side of a sync pair.
type SyncPermissions struct {
	Create bool
	Delete bool
	Update bool
}

// DefaultSyncPermissions grants every operation; this is the common case
// for a freely writable side.
func DefaultSyncPermissions() SyncPermissions {
	return SyncPermissions{Create: true, Delete: true, Update: true}
}

// FolderSyncConfig controls the folder phase of a sync run.
type FolderSyncConfig struct {
	Filter FolderFilter
}

// EnvelopeSyncConfig controls the envelope phase of a sync run.
type EnvelopeSyncConfig struct {
	// Query is a search-query-grammar string applied to
	// every side before diffing. Empty means "no filter".
	Query string
}

// FlagSyncConfig controls which flags participate in a sync run.
type FlagSyncConfig struct {
	// Ignored lists custom flag keys that are never synchronized between
	// sides (e.g. an Exchange server's internal $MDNSent keyword).
	Ignored []string
}

// MessageSyncConfig controls message-body handling during sync.
type MessageSyncConfig struct {
	// MaxSize, if non-zero, skips copying message bodies larger than this
	// many bytes; such a message is neither created nor cached on the
	// other side, and its copy hunk is reported as failed.
	MaxSize int64
}

// TemplateConfig controls new/reply/forward composition.
type TemplateConfig struct {
	SignaturePlacement SignaturePlacement
	Signature          string
	NoReplyPattern     string // overrides the default no-reply regex
}

type SignaturePlacement int

const (
	SignatureAppend SignaturePlacement = iota
	SignatureAttach
	SignatureNone
)

// PGPProviderKind selects which PGP implementation backs an account.
type PGPProviderKind int

const (
	PGPDisabled PGPProviderKind = iota
	PGPCommand
	PGPNative
)

// PGPConfig configures the PGP provider for an account.
type PGPConfig struct {
	Provider PGPProviderKind

	// Command provider settings.
	CommandPath string
	CommandArgs []string

	// Native provider settings.
	SecretKey SecretKeySource
	PublicKeySources []PublicKeySource

	SecretPassphrase SecretProvider
}

// SecretKeySourceKind selects how a secret key is loaded.
type SecretKeySourceKind int

const (
	SecretKeyRaw SecretKeySourceKind = iota
	SecretKeyFile
	SecretKeyKeyring
)

// SecretKeySource describes where to load the account's own secret key
// from.
type SecretKeySource struct {
	Kind  SecretKeySourceKind
	Value string // raw bytes (base64/armored), file path, or keyring entry name
}

// PublicKeySourceKind selects how a recipient's public key is resolved.
type PublicKeySourceKind int

const (
	PublicKeyRawMapping PublicKeySourceKind = iota
	PublicKeyWKD
	PublicKeyHKP
)

// PublicKeySource describes one entry in the recipient public-key
// resolution chain; entries are tried in order until one succeeds.
type PublicKeySource struct {
	Kind        PublicKeySourceKind
	RawMapping  map[string]string // addr -> armored key, for RawMapping
	HKPServers  []string          // for HKP, tried in order
}

// SecretProvider resolves a secret-key passphrase on demand. The concrete
// implementation (keyring, env var, interactive callback) is supplied by
// the caller; this package only defines the contract.
type SecretProvider interface {
	Passphrase(accountName string) (string, error)
}

// OAuth2Config configures the OAuth2 authorization-code flow's token
// exchange. The actual browser/redirect UI is an external collaborator;
// this struct only carries what the IMAP/SMTP adapters need to request
// and refresh a token.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	Scopes       []string
	PKCE         bool

	TokenProvider OAuth2TokenProvider
}

// OAuth2TokenProvider supplies and refreshes access tokens. Its
// implementation (keyring-backed cache, in-memory, etc.) lives outside
// this module.
type OAuth2TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
	Refresh(ctx context.Context) (string, error)
}
