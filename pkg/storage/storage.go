package storage

import (
	"errors"
	"fmt"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	logging "github.com/ipfs/go-log/v2"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/index"
	"github.com/ssargent/rolodex/pkg/vcard"
)

var log = logging.Logger("storage")

// contactPrefix is the key prefix of serialized cards
const contactPrefix = "contact/"

// ErrNotFound is returned when no contact has the requested ID
var ErrNotFound = errors.New("contact not found")

// Config configures a ContactStore
type Config struct {
	// Path is the pebble directory; ignored when InMemory is set
	Path     string
	InMemory bool
	// Sync makes every write durable before returning
	Sync bool
	// IndexFields overrides index.DefaultFields
	IndexFields []string
}

// Contact is a stored card and its ID
type Contact struct {
	ID   ksuid.KSUID
	Card *vcard.Card
}

// Stats describes the contents of a ContactStore
type Stats struct {
	Contacts      int      `json:"contacts"`
	IndexedFields []string `json:"indexed_fields"`
	DiskUsage     uint64   `json:"disk_usage_bytes"`
}

// ContactStore persists vCards in pebble, keyed by KSUID, and keeps the
// secondary indexes in step with every write
type ContactStore struct {
	db      *pebble.DB
	indexes *index.Manager
	wopts   *pebble.WriteOptions

	// serializes read-modify-write cycles on the indexes
	mu sync.Mutex
}

// NewContactStore opens or creates a contact store
func NewContactStore(cfg Config) (*ContactStore, error) {
	opts := &pebble.Options{}
	path := cfg.Path
	if cfg.InMemory {
		opts.FS = vfs.NewMem()
		path = ""
	} else if path == "" {
		return nil, fmt.Errorf("contact store path is required")
	}

	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open contact store: %w", err)
	}

	wopts := pebble.NoSync
	if cfg.Sync {
		wopts = pebble.Sync
	}

	log.Debugf("opened contact store at %q (in-memory: %v)", path, cfg.InMemory)

	return &ContactStore{
		db:      db,
		indexes: index.NewManager(cfg.IndexFields...),
		wopts:   wopts,
	}, nil
}

// Create stores card under a new ID
func (s *ContactStore) Create(card *vcard.Card) (ksuid.KSUID, error) {
	ids, err := s.CreateAll([]*vcard.Card{card})
	if err != nil {
		return ksuid.Nil, err
	}
	return ids[0], nil
}

// CreateAll stores every card under a new ID in a single batch. Either all of
// the cards are stored or none are.
func (s *ContactStore) CreateAll(cards []*vcard.Card) ([]ksuid.KSUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	batch := s.db.NewBatch()
	defer batch.Close()

	ids := make([]ksuid.KSUID, 0, len(cards))
	for _, card := range cards {
		id := ksuid.New()
		if err := batch.Set(contactKey(id), []byte(card.String()), nil); err != nil {
			return nil, fmt.Errorf("failed to write contact: %w", err)
		}
		if err := s.indexes.IndexCard(batch, id, card); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := batch.Commit(s.wopts); err != nil {
		return nil, fmt.Errorf("failed to commit contacts: %w", err)
	}

	return ids, nil
}

// Read returns the card stored under id
func (s *ContactStore) Read(id ksuid.KSUID) (*vcard.Card, error) {
	data, closer, err := s.db.Get(contactKey(id))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read contact %s: %w", id, err)
	}
	defer closer.Close()

	return decode(id, data), nil
}

// Update replaces the card stored under id
func (s *ContactStore) Update(id ksuid.KSUID, card *vcard.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.Read(id)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := s.indexes.UnindexCard(batch, id, old); err != nil {
		return err
	}
	if err := batch.Set(contactKey(id), []byte(card.String()), nil); err != nil {
		return fmt.Errorf("failed to write contact: %w", err)
	}
	if err := s.indexes.IndexCard(batch, id, card); err != nil {
		return err
	}
	if err := batch.Commit(s.wopts); err != nil {
		return fmt.Errorf("failed to commit contact: %w", err)
	}
	return nil
}

// Delete removes the card stored under id
func (s *ContactStore) Delete(id ksuid.KSUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.Read(id)
	if err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	if err := s.indexes.UnindexCard(batch, id, old); err != nil {
		return err
	}
	if err := batch.Delete(contactKey(id), nil); err != nil {
		return fmt.Errorf("failed to delete contact: %w", err)
	}
	if err := batch.Commit(s.wopts); err != nil {
		return fmt.Errorf("failed to commit delete: %w", err)
	}
	return nil
}

// List returns every contact, oldest first
func (s *ContactStore) List() ([]Contact, error) {
	lower := []byte(contactPrefix)
	upper := []byte(contactPrefix)
	upper[len(upper)-1]++

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return nil, fmt.Errorf("failed to open contact iterator: %w", err)
	}
	defer iter.Close()

	var contacts []Contact
	for iter.First(); iter.Valid(); iter.Next() {
		id, err := ksuid.FromBytes(iter.Key()[len(contactPrefix):])
		if err != nil {
			log.Warnw("skipping contact with invalid key", "key", iter.Key(), "err", err)
			continue
		}
		contacts = append(contacts, Contact{ID: id, Card: decode(id, iter.Value())})
	}

	return contacts, iter.Error()
}

// Search returns the contacts whose field has a value starting with prefix,
// ignoring case
func (s *ContactStore) Search(field, prefix string) ([]Contact, error) {
	ids, err := s.indexes.Search(s.db, field, prefix)
	if err != nil {
		return nil, err
	}

	contacts := make([]Contact, 0, len(ids))
	for _, id := range ids {
		card, err := s.Read(id)
		if errors.Is(err, ErrNotFound) {
			log.Warnw("index entry points at missing contact", "id", id.String(), "field", field)
			continue
		}
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, Contact{ID: id, Card: card})
	}
	return contacts, nil
}

// Stats returns contact counts and storage usage
func (s *ContactStore) Stats() (*Stats, error) {
	contacts, err := s.List()
	if err != nil {
		return nil, err
	}

	return &Stats{
		Contacts:      len(contacts),
		IndexedFields: s.indexes.Fields(),
		DiskUsage:     s.db.Metrics().DiskSpaceUsage(),
	}, nil
}

// Close closes the underlying database
func (s *ContactStore) Close() error {
	return s.db.Close()
}

func contactKey(id ksuid.KSUID) []byte {
	return append([]byte(contactPrefix), id.Bytes()...)
}

// decode parses a stored card; stored text was written by Card.String so any
// warning here means the data was modified outside the store
func decode(id ksuid.KSUID, data []byte) *vcard.Card {
	card, warnings := (&vcard.Decoder{}).Decode(string(data))
	for _, w := range warnings {
		log.Warnw("stored contact did not parse cleanly", "id", id.String(), "warning", w.String())
	}
	return card
}
