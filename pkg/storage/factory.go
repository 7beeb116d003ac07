package storage

// StoreFactory opens contact stores
type StoreFactory interface {
	OpenStore(cfg Config) (*ContactStore, error)
}

// DefaultStoreFactory opens pebble-backed stores with NewContactStore
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// OpenStore opens or creates the store described by cfg
func (f *DefaultStoreFactory) OpenStore(cfg Config) (*ContactStore, error) {
	return NewContactStore(cfg)
}
