package index

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/cockroachdb/pebble"
	"github.com/segmentio/ksuid"
)

// KeyPrefix is the prefix of every index entry in the database
const KeyPrefix = "idx/"

// idLen is the size of the binary KSUID appended to every index key
const idLen = 20

// SecondaryIndex maps the values of one vCard attribute to contact IDs.
//
// Entries are stored in pebble under
//
//	idx/<field>/<lowercased value>\x00<ksuid bytes>
//
// so that all contacts sharing a value prefix are adjacent.
type SecondaryIndex struct {
	field  string
	prefix []byte
}

// NewSecondaryIndex creates a new secondary index for an attribute name
func NewSecondaryIndex(field string) *SecondaryIndex {
	field = strings.ToUpper(field)
	return &SecondaryIndex{
		field:  field,
		prefix: []byte(KeyPrefix + strings.ToLower(field) + "/"),
	}
}

// Field returns the attribute name this index covers
func (idx *SecondaryIndex) Field() string {
	return idx.field
}

// Insert adds an entry for value and id to w
func (idx *SecondaryIndex) Insert(w pebble.Writer, value string, id ksuid.KSUID) error {
	if err := w.Set(idx.createIndexKey(value, id), nil, nil); err != nil {
		return fmt.Errorf("failed to insert %s index entry: %w", idx.field, err)
	}
	return nil
}

// Delete removes the entry for value and id from w
func (idx *SecondaryIndex) Delete(w pebble.Writer, value string, id ksuid.KSUID) error {
	if err := w.Delete(idx.createIndexKey(value, id), nil); err != nil {
		return fmt.Errorf("failed to delete %s index entry: %w", idx.field, err)
	}
	return nil
}

// SearchPrefix returns the IDs of contacts with a value starting with prefix,
// ignoring case. Each ID is returned once, in index order.
func (idx *SecondaryIndex) SearchPrefix(r pebble.Reader, prefix string) ([]ksuid.KSUID, error) {
	lower := idx.createFieldPrefix(prefix)
	iter, err := r.NewIter(&pebble.IterOptions{
		LowerBound: lower,
		UpperBound: prefixEnd(lower),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open %s index iterator: %w", idx.field, err)
	}
	defer iter.Close()

	var ids []ksuid.KSUID
	seen := make(map[ksuid.KSUID]struct{})
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) < len(idx.prefix)+idLen+1 {
			continue
		}
		id, err := ksuid.FromBytes(key[len(key)-idLen:])
		if err != nil {
			return nil, fmt.Errorf("corrupt %s index key %q: %w", idx.field, key, err)
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids, iter.Error()
}

// createIndexKey creates a composite key: field prefix + value + id
func (idx *SecondaryIndex) createIndexKey(value string, id ksuid.KSUID) []byte {
	var buf bytes.Buffer
	buf.Write(idx.createFieldPrefix(value))
	buf.WriteByte(0)
	buf.Write(id.Bytes())
	return buf.Bytes()
}

// createFieldPrefix creates the key prefix matching value and every value
// that starts with it
func (idx *SecondaryIndex) createFieldPrefix(value string) []byte {
	key := make([]byte, 0, len(idx.prefix)+len(value))
	key = append(key, idx.prefix...)
	return append(key, normalize(value)...)
}

// normalize lowercases a value and strips the NUL separator from it
func normalize(value string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(value)), "\x00", "")
}

// prefixEnd returns the smallest key greater than every key starting with p
func prefixEnd(p []byte) []byte {
	end := bytes.Clone(p)
	for i := len(end) - 1; i >= 0; i-- {
		end[i]++
		if end[i] != 0 {
			return end[:i+1]
		}
	}
	return nil
}
