package domain

// LedgerStore persists ledger snapshots durably.
// Implementations: atomic-write JSON file, SQLCipher database.
type LedgerStore interface {
	// Load returns the persisted ledger. Returns ErrSnapshotNotFound
	// when no snapshot exists or the snapshot cannot be parsed.
	Load() (*Ledger, error)

	// Save replaces the persisted snapshot (last write wins). It may
	// be called once per second per running app and must not grow
	// without bound.
	Save(l *Ledger) error

	// Clear discards the persisted snapshot entirely.
	Clear() error

	// Close releases resources (e.g., database connection).
	Close() error
}

// KeyProvider abstracts the source of the encryption key for the
// encrypted store backend.
type KeyProvider interface {
	// GetKey returns the encryption key bytes.
	GetKey() ([]byte, error)

	// StoreKey persists a new encryption key.
	StoreKey(key []byte) error

	// KeyExists checks if a key has been generated.
	KeyExists() bool
}

// NotificationKind classifies engine notifications.
type NotificationKind string

const (
	// NoticeUpdate signals that ledger state changed and views should
	// refresh.
	NoticeUpdate NotificationKind = "update"

	// NoticeLimitReached signals that an app crossed its limit and
	// was stopped and locked.
	NoticeLimitReached NotificationKind = "limit_reached"

	// NoticeWarning signals a non-fatal problem, e.g. a failed
	// persist. In-memory state stays authoritative.
	NoticeWarning NotificationKind = "warning"
)

// Notification is a one-way signal from the engine to the rendering
// layer. Delivery must never block an engine operation.
type Notification struct {
	Kind    NotificationKind
	AppID   string
	Message string
}

// Notifier receives engine notifications.
type Notifier interface {
	Notify(n Notification)
}
