package api

import (
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/storage"
	"github.com/ssargent/rolodex/pkg/vcard"
)

// Content types understood by the contact endpoints
const (
	ContentTypeVCard = "text/vcard"
	ContentTypeJSON  = "application/json"
)

// APIResponse represents a standard API response
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// ServerConfig holds configuration for the API server
type ServerConfig struct {
	Port   int
	Bind   string
	APIKey string
	// DecodeCharset transcodes quoted-printable values using their CHARSET
	DecodeCharset bool
	// MaxBodySize limits request bodies; 0 means DefaultMaxBodySize
	MaxBodySize int64
}

// DefaultMaxBodySize is the request body limit used when none is configured
const DefaultMaxBodySize = 1 << 20

// IContactStore defines the contact store operations used by the API
type IContactStore interface {
	Create(card *vcard.Card) (ksuid.KSUID, error)
	CreateAll(cards []*vcard.Card) ([]ksuid.KSUID, error)
	Read(id ksuid.KSUID) (*vcard.Card, error)
	Update(id ksuid.KSUID, card *vcard.Card) error
	Delete(id ksuid.KSUID) error
	List() ([]storage.Contact, error)
	Search(field, prefix string) ([]storage.Contact, error)
	Stats() (*storage.Stats, error)
}

// ParamJSON is the JSON form of a vCard parameter
type ParamJSON struct {
	Name   string   `json:"name"`
	Values []string `json:"values"`
}

// AttributeJSON is the JSON form of a vCard attribute
type AttributeJSON struct {
	Group  string      `json:"group,omitempty"`
	Name   string      `json:"name"`
	Params []ParamJSON `json:"params,omitempty"`
	Values []string    `json:"values"`
}

// ContactResponse is a stored contact
type ContactResponse struct {
	ID         string          `json:"id"`
	Attributes []AttributeJSON `json:"attributes"`
}

// CreateResponse lists the contacts created from a request body
type CreateResponse struct {
	IDs      []string        `json:"ids"`
	Warnings []vcard.Warning `json:"warnings,omitempty"`
}

// ParseResponse is the decoded structure of a request body
type ParseResponse struct {
	Cards    [][]AttributeJSON `json:"cards"`
	Warnings []vcard.Warning   `json:"warnings,omitempty"`
}

// AttributesJSON converts a card to its JSON form
func AttributesJSON(card *vcard.Card) []AttributeJSON {
	attrs := make([]AttributeJSON, 0, card.Len())
	for _, a := range card.Attributes() {
		aj := AttributeJSON{Group: a.Group(), Name: a.Name(), Values: a.Values()}
		for _, p := range a.Params() {
			aj.Params = append(aj.Params, ParamJSON{Name: p.Name(), Values: p.Values()})
		}
		attrs = append(attrs, aj)
	}
	return attrs
}

// NewContactResponse converts a stored card to its JSON form
func NewContactResponse(id ksuid.KSUID, card *vcard.Card) ContactResponse {
	return ContactResponse{ID: id.String(), Attributes: AttributesJSON(card)}
}
