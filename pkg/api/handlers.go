package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/index"
	"github.com/ssargent/rolodex/pkg/storage"
	"github.com/ssargent/rolodex/pkg/vcard"
)

// Server holds the API server state
type Server struct {
	store   IContactStore
	config  ServerConfig
	metrics *Metrics
	decoder *vcard.Decoder
}

// NewServer creates a new API server
func NewServer(store IContactStore, config ServerConfig, metrics *Metrics) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	return &Server{
		store:   store,
		config:  config,
		metrics: metrics,
		decoder: &vcard.Decoder{DecodeCharset: config.DecodeCharset},
	}
}

// handleHealth godoc
//
//	@Summary		Health check
//	@Description	Get the health status of the API
//	@Tags			health
//	@Produce		json
//	@Success		200	{object}	map[string]string
//	@Router			/health [get]
//	@Security		ApiKeyAuth
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.metrics.RecordHealthCheck(true)
	sendSuccess(w, map[string]string{"status": "healthy"})
}

// handleCreateContacts godoc
//
//	@Summary		Create contacts
//	@Description	Store every vCard in the request body
//	@Tags			contacts
//	@Accept			text/vcard
//	@Produce		json
//	@Param			body	body		string	true	"One or more vCards"
//	@Success		201		{object}	CreateResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		500		{object}	map[string]string
//	@Router			/contacts [post]
//	@Security		ApiKeyAuth
func (s *Server) handleCreateContacts(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	cards, warnings := s.decoder.DecodeAll(body)
	s.metrics.RecordParse(len(cards), len(warnings))

	nonEmpty := make([]*vcard.Card, 0, len(cards))
	for _, card := range cards {
		if card.Len() > 0 {
			nonEmpty = append(nonEmpty, card)
		}
	}
	if len(nonEmpty) == 0 {
		sendError(w, "No vCard found in request body", http.StatusBadRequest)
		return
	}

	// all or nothing, so a failed request can be retried as is
	start := time.Now()
	ids, err := s.store.CreateAll(nonEmpty)
	s.metrics.RecordStoreOperation("create", err == nil, time.Since(start))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to store contacts: %v", err), http.StatusInternalServerError)
		return
	}

	resp := CreateResponse{IDs: make([]string, 0, len(ids)), Warnings: warnings}
	for _, id := range ids {
		resp.IDs = append(resp.IDs, id.String())
	}
	sendCreated(w, resp)
}

// handleListContacts godoc
//
//	@Summary		List contacts
//	@Description	List every stored contact, oldest first
//	@Tags			contacts
//	@Produce		json
//	@Success		200	{array}		ContactResponse
//	@Failure		500	{object}	map[string]string
//	@Router			/contacts [get]
//	@Security		ApiKeyAuth
func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	contacts, err := s.store.List()
	s.metrics.RecordStoreOperation("list", err == nil, time.Since(start))
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to list contacts: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, NewContactsResponse(contacts))
}

// handleGetContact godoc
//
//	@Summary		Get a contact
//	@Description	Get a contact as JSON, or as vCard text when Accept is text/vcard
//	@Tags			contacts
//	@Produce		json,text/vcard
//	@Param			id	path		string	true	"Contact ID"
//	@Success		200	{object}	ContactResponse
//	@Failure		400	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/contacts/{id} [get]
//	@Security		ApiKeyAuth
func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	card, err := s.store.Read(id)
	s.metrics.RecordStoreOperation("get", err == nil, time.Since(start))
	if err != nil {
		sendStoreError(w, "get", err)
		return
	}

	if strings.Contains(r.Header.Get("Accept"), ContentTypeVCard) {
		sendVCard(w, card.String())
		return
	}
	sendSuccess(w, NewContactResponse(id, card))
}

// handleUpdateContact godoc
//
//	@Summary		Replace a contact
//	@Description	Replace a stored contact with the vCard in the request body
//	@Tags			contacts
//	@Accept			text/vcard
//	@Produce		json
//	@Param			id		path		string	true	"Contact ID"
//	@Param			body	body		string	true	"vCard"
//	@Success		200		{object}	ContactResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Router			/contacts/{id} [put]
//	@Security		ApiKeyAuth
func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	card, warnings := s.decoder.Decode(body)
	s.metrics.RecordParse(1, len(warnings))
	if card.Len() == 0 {
		sendError(w, "No vCard found in request body", http.StatusBadRequest)
		return
	}

	start := time.Now()
	err := s.store.Update(id, card)
	s.metrics.RecordStoreOperation("update", err == nil, time.Since(start))
	if err != nil {
		sendStoreError(w, "update", err)
		return
	}

	sendSuccess(w, NewContactResponse(id, card))
}

// handleDeleteContact godoc
//
//	@Summary		Delete a contact
//	@Tags			contacts
//	@Produce		json
//	@Param			id	path		string	true	"Contact ID"
//	@Success		200	{object}	map[string]string
//	@Failure		404	{object}	map[string]string
//	@Router			/contacts/{id} [delete]
//	@Security		ApiKeyAuth
func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	start := time.Now()
	err := s.store.Delete(id)
	s.metrics.RecordStoreOperation("delete", err == nil, time.Since(start))
	if err != nil {
		sendStoreError(w, "delete", err)
		return
	}

	sendSuccess(w, map[string]string{"message": "Contact deleted successfully"})
}

// handleSearch godoc
//
//	@Summary		Search contacts
//	@Description	Find contacts whose indexed attribute starts with a prefix, ignoring case
//	@Tags			contacts
//	@Produce		json
//	@Param			field	query		string	true	"Attribute name, e.g. FN or EMAIL"
//	@Param			q		query		string	false	"Value prefix"
//	@Success		200		{array}		ContactResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/search [get]
//	@Security		ApiKeyAuth
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	field := r.URL.Query().Get("field")
	if field == "" {
		sendError(w, "field is required", http.StatusBadRequest)
		return
	}

	start := time.Now()
	contacts, err := s.store.Search(field, r.URL.Query().Get("q"))
	s.metrics.RecordStoreOperation("search", err == nil, time.Since(start))
	if errors.Is(err, index.ErrFieldNotIndexed) {
		sendError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to search contacts: %v", err), http.StatusInternalServerError)
		return
	}

	sendSuccess(w, NewContactsResponse(contacts))
}

// handleStats godoc
//
//	@Summary		Store statistics
//	@Tags			diagnostics
//	@Produce		json
//	@Success		200	{object}	storage.Stats
//	@Failure		500	{object}	map[string]string
//	@Router			/stats [get]
//	@Security		ApiKeyAuth
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats()
	if err != nil {
		sendError(w, fmt.Sprintf("Failed to get stats: %v", err), http.StatusInternalServerError)
		return
	}
	s.metrics.UpdateStoreStats(stats.Contacts, stats.DiskUsage)
	sendSuccess(w, stats)
}

// handleParse godoc
//
//	@Summary		Parse vCards
//	@Description	Decode the request body and return its structure and any warnings. Nothing is stored.
//	@Tags			vcard
//	@Accept			text/vcard
//	@Produce		json
//	@Param			body	body		string	true	"One or more vCards"
//	@Success		200		{object}	ParseResponse
//	@Router			/vcard/parse [post]
//	@Security		ApiKeyAuth
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	cards, warnings := s.decoder.DecodeAll(body)
	s.metrics.RecordParse(len(cards), len(warnings))

	resp := ParseResponse{Cards: make([][]AttributeJSON, 0, len(cards)), Warnings: warnings}
	for _, card := range cards {
		resp.Cards = append(resp.Cards, AttributesJSON(card))
	}
	sendSuccess(w, resp)
}

// handleFormat godoc
//
//	@Summary		Format vCards
//	@Description	Decode the request body and write it back in canonical form. Nothing is stored.
//	@Tags			vcard
//	@Accept			text/vcard
//	@Produce		text/vcard
//	@Param			body	body		string	true	"One or more vCards"
//	@Success		200		{string}	string
//	@Failure		400		{object}	map[string]string
//	@Router			/vcard/format [post]
//	@Security		ApiKeyAuth
func (s *Server) handleFormat(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readBody(w, r)
	if !ok {
		return
	}

	cards, warnings := s.decoder.DecodeAll(body)
	s.metrics.RecordParse(len(cards), len(warnings))
	if len(cards) == 0 {
		sendError(w, "No vCard found in request body", http.StatusBadRequest)
		return
	}

	parts := make([]string, len(cards))
	for i, card := range cards {
		parts[i] = card.String()
	}
	sendVCard(w, strings.Join(parts, "\r\n")+"\r\n")
}

// readBody reads the whole request body, answering the request itself on failure
func (s *Server) readBody(w http.ResponseWriter, r *http.Request) (string, bool) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			sendError(w, "Request body too large", http.StatusRequestEntityTooLarge)
			return "", false
		}
		sendError(w, "Failed to read request body", http.StatusBadRequest)
		return "", false
	}
	return string(data), true
}

// contactID parses the {id} URL parameter
func contactID(w http.ResponseWriter, r *http.Request) (ksuid.KSUID, bool) {
	id, err := ksuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		sendError(w, "Invalid contact ID", http.StatusBadRequest)
		return ksuid.Nil, false
	}
	return id, true
}

func sendStoreError(w http.ResponseWriter, op string, err error) {
	if errors.Is(err, storage.ErrNotFound) {
		sendError(w, "Contact not found", http.StatusNotFound)
		return
	}
	log.Errorw("contact store operation failed", "operation", op, "err", err)
	sendError(w, fmt.Sprintf("Failed to %s contact: %v", op, err), http.StatusInternalServerError)
}

// NewContactsResponse converts stored contacts to their JSON form
func NewContactsResponse(contacts []storage.Contact) []ContactResponse {
	resp := make([]ContactResponse, 0, len(contacts))
	for _, c := range contacts {
		resp = append(resp, NewContactResponse(c.ID, c.Card))
	}
	return resp
}

// startMetricsUpdater periodically updates store metrics until ctx is done
func (s *Server) startMetricsUpdater(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats, err := s.store.Stats()
			if err != nil {
				log.Warnw("failed to collect store stats", "err", err)
				continue
			}
			s.metrics.UpdateStoreStats(stats.Contacts, stats.DiskUsage)
		}
	}
}
