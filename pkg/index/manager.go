package index

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/vcard"
)

// DefaultFields are the attributes indexed when no fields are configured
var DefaultFields = []string{"FN", "EMAIL", "TEL", "ORG"}

// ErrFieldNotIndexed is returned when searching a field without an index
var ErrFieldNotIndexed = errors.New("field is not indexed")

// Manager manages the secondary indexes of a contact store
type Manager struct {
	indexes map[string]*SecondaryIndex
	mutex   sync.RWMutex
}

// NewManager creates a new index manager for fields, or DefaultFields if none
// are given
func NewManager(fields ...string) *Manager {
	if len(fields) == 0 {
		fields = DefaultFields
	}

	im := &Manager{indexes: make(map[string]*SecondaryIndex)}
	for _, f := range fields {
		im.GetOrCreateIndex(f)
	}
	return im
}

// GetOrCreateIndex gets an existing index or creates a new one for a field
func (im *Manager) GetOrCreateIndex(field string) *SecondaryIndex {
	im.mutex.Lock()
	defer im.mutex.Unlock()

	key := strings.ToUpper(field)
	if idx, exists := im.indexes[key]; exists {
		return idx
	}

	idx := NewSecondaryIndex(field)
	im.indexes[key] = idx
	return idx
}

// Index returns the index for field, if there is one
func (im *Manager) Index(field string) (*SecondaryIndex, bool) {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	idx, ok := im.indexes[strings.ToUpper(field)]
	return idx, ok
}

// Fields returns the indexed attribute names in sorted order
func (im *Manager) Fields() []string {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	fields := make([]string, 0, len(im.indexes))
	for f := range im.indexes {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return fields
}

// IndexCard writes an entry for every non-empty value of every indexed
// attribute on card
func (im *Manager) IndexCard(w pebble.Writer, id ksuid.KSUID, card *vcard.Card) error {
	return im.each(card, func(idx *SecondaryIndex, value string) error {
		return idx.Insert(w, value, id)
	})
}

// UnindexCard removes the entries IndexCard wrote for card
func (im *Manager) UnindexCard(w pebble.Writer, id ksuid.KSUID, card *vcard.Card) error {
	return im.each(card, func(idx *SecondaryIndex, value string) error {
		return idx.Delete(w, value, id)
	})
}

// Search returns the IDs of contacts whose field starts with prefix
func (im *Manager) Search(r pebble.Reader, field, prefix string) ([]ksuid.KSUID, error) {
	idx, ok := im.Index(field)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrFieldNotIndexed, field)
	}
	return idx.SearchPrefix(r, prefix)
}

func (im *Manager) each(card *vcard.Card, fn func(*SecondaryIndex, string) error) error {
	im.mutex.RLock()
	defer im.mutex.RUnlock()

	for _, attr := range card.Attributes() {
		idx, ok := im.indexes[strings.ToUpper(attr.Name())]
		if !ok {
			continue
		}
		for _, v := range attr.Values() {
			if normalize(v) == "" {
				continue
			}
			if err := fn(idx, v); err != nil {
				return err
			}
		}
	}
	return nil
}
