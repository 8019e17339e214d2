package store

// Stores is the top-level container for all storage backends.
type Stores struct {
	Conclusions ConclusionStore

	// Close releases the backing database, if any.
	Close func() error
}

// StoreConfig selects and configures the conclusion backend.
type StoreConfig struct {
	Driver     string // "memory", "sqlite", "postgres"
	DSN        string
	SQLitePath string
}
