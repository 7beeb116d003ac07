package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/segmentio/ksuid"
	"github.com/ssargent/rolodex/pkg/storage"
	"github.com/ssargent/rolodex/pkg/vcard"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "test-key"

const twoCards = "BEGIN:VCARD\r\n" +
	"FN:Jane Doe\r\n" +
	"EMAIL;TYPE=INTERNET:jane@example.com\r\n" +
	"END:VCARD\r\n" +
	"BEGIN:VCARD\r\n" +
	"FN:John Smith\r\n" +
	"TEL;TYPE=CELL:+1 555 0100\r\n" +
	"END:VCARD\r\n"

type testServer struct {
	server  *Server
	handler http.Handler
	store   *storage.ContactStore
	reg     *prometheus.Registry
}

func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := storage.NewContactStore(storage.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	reg := prometheus.NewRegistry()
	server := NewServer(store, ServerConfig{APIKey: testAPIKey, MaxBodySize: 4096}, NewMetrics(reg))

	return &testServer{
		server:  server,
		handler: NewRouter(server, reg),
		store:   store,
		reg:     reg,
	}
}

func (ts *testServer) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("X-API-Key", testAPIKey)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// decodeResponse decodes an APIResponse and unmarshals its data into out
func decodeResponse(t *testing.T, w *httptest.ResponseRecorder, out interface{}) APIResponse {
	t.Helper()

	var raw struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.NewDecoder(w.Body).Decode(&raw))
	if out != nil && len(raw.Data) > 0 {
		require.NoError(t, json.Unmarshal(raw.Data, out))
	}
	return APIResponse{Success: raw.Success, Error: raw.Error}
}

func (ts *testServer) createContacts(t *testing.T, body string) []string {
	t.Helper()

	w := ts.do(t, http.MethodPost, "/api/v1/contacts", body, "Content-Type", ContentTypeVCard)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var created CreateResponse
	resp := decodeResponse(t, w, &created)
	require.True(t, resp.Success)
	return created.IDs
}

func TestServer_handleHealth(t *testing.T) {
	ts := setupTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	ts.server.handleHealth(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var data map[string]string
	resp := decodeResponse(t, w, &data)
	assert.True(t, resp.Success)
	assert.Equal(t, "healthy", data["status"])
}

func TestServer_CreateAndGetContact(t *testing.T) {
	ts := setupTestServer(t)

	ids := ts.createContacts(t, twoCards)
	require.Len(t, ids, 2)

	t.Run("json", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/contacts/"+ids[0], "")
		require.Equal(t, http.StatusOK, w.Code)

		var contact ContactResponse
		decodeResponse(t, w, &contact)
		assert.Equal(t, ids[0], contact.ID)
		require.Len(t, contact.Attributes, 2)
		assert.Equal(t, "FN", contact.Attributes[0].Name)
		assert.Equal(t, []string{"Jane Doe"}, contact.Attributes[0].Values)
		assert.Equal(t, "EMAIL", contact.Attributes[1].Name)
		assert.Equal(t, []ParamJSON{{Name: "TYPE", Values: []string{"INTERNET"}}}, contact.Attributes[1].Params)
	})

	t.Run("vcard", func(t *testing.T) {
		w := ts.do(t, http.MethodGet, "/api/v1/contacts/"+ids[1], "", "Accept", ContentTypeVCard)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "text/vcard; charset=utf-8", w.Header().Get("Content-Type"))
		assert.Equal(t, "BEGIN:VCARD\r\nFN:John Smith\r\nTEL;TYPE=CELL:+1 555 0100\r\nEND:VCARD", w.Body.String())
	})
}

func TestServer_CreateContacts_Warnings(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodPost, "/api/v1/contacts", "BEGIN:VCARD\r\nFN:No End\r\n")
	require.Equal(t, http.StatusCreated, w.Code)

	var created CreateResponse
	decodeResponse(t, w, &created)
	assert.Len(t, created.IDs, 1)
	require.Len(t, created.Warnings, 1)
	assert.Equal(t, "vcard ended without END:VCARD", created.Warnings[0].Message)
}

func TestServer_CreateContacts_Errors(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "empty body",
			body:           "",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No vCard found in request body",
		},
		{
			name:           "attributes outside a vcard",
			body:           "FN:Nobody\r\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No vCard found in request body",
		},
		{
			name:           "only delimiters",
			body:           "BEGIN:VCARD\r\nEND:VCARD\r\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No vCard found in request body",
		},
		{
			name:           "body too large",
			body:           "BEGIN:VCARD\r\nNOTE:" + strings.Repeat("x", 8192) + "\r\nEND:VCARD\r\n",
			expectedStatus: http.StatusRequestEntityTooLarge,
			expectedError:  "Request body too large",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := setupTestServer(t)

			w := ts.do(t, http.MethodPost, "/api/v1/contacts", tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)

			resp := decodeResponse(t, w, nil)
			assert.False(t, resp.Success)
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}

// failingStore stores nothing from CreateAll
type failingStore struct {
	*storage.ContactStore
}

func (f failingStore) CreateAll(cards []*vcard.Card) ([]ksuid.KSUID, error) {
	return nil, errors.New("disk full")
}

func TestServer_CreateContacts_AllOrNothing(t *testing.T) {
	ts := setupTestServer(t)
	server := NewServer(failingStore{ts.store}, ServerConfig{APIKey: testAPIKey}, NewMetrics(prometheus.NewRegistry()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/contacts", strings.NewReader(twoCards))
	w := httptest.NewRecorder()
	server.handleCreateContacts(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	resp := decodeResponse(t, w, nil)
	assert.False(t, resp.Success)
	assert.Equal(t, "Failed to store contacts: disk full", resp.Error)

	contacts, err := ts.store.List()
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestServer_ListContacts(t *testing.T) {
	ts := setupTestServer(t)

	w := ts.do(t, http.MethodGet, "/api/v1/contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	var contacts []ContactResponse
	decodeResponse(t, w, &contacts)
	assert.Empty(t, contacts)

	ids := ts.createContacts(t, twoCards)

	w = ts.do(t, http.MethodGet, "/api/v1/contacts", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &contacts)
	require.Len(t, contacts, 2)
	assert.ElementsMatch(t, ids, []string{contacts[0].ID, contacts[1].ID})
}

func TestServer_UpdateContact(t *testing.T) {
	ts := setupTestServer(t)
	ids := ts.createContacts(t, twoCards)

	w := ts.do(t, http.MethodPut, "/api/v1/contacts/"+ids[0], "BEGIN:VCARD\r\nFN:Jane Roe\r\nEND:VCARD\r\n")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var contact ContactResponse
	decodeResponse(t, w, &contact)
	assert.Equal(t, []string{"Jane Roe"}, contact.Attributes[0].Values)

	// the index follows the update
	w = ts.do(t, http.MethodGet, "/api/v1/search?field=FN&q=jane+r", "")
	require.Equal(t, http.StatusOK, w.Code)
	var found []ContactResponse
	decodeResponse(t, w, &found)
	require.Len(t, found, 1)
	assert.Equal(t, ids[0], found[0].ID)

	w = ts.do(t, http.MethodGet, "/api/v1/search?field=EMAIL&q=jane", "")
	require.Equal(t, http.StatusOK, w.Code)
	decodeResponse(t, w, &found)
	assert.Empty(t, found)
}

func TestServer_UpdateContact_Errors(t *testing.T) {
	ts := setupTestServer(t)
	ids := ts.createContacts(t, twoCards)

	tests := []struct {
		name           string
		path           string
		body           string
		expectedStatus int
		expectedError  string
	}{
		{
			name:           "invalid id",
			path:           "/api/v1/contacts/not-an-id",
			body:           "BEGIN:VCARD\r\nFN:X\r\nEND:VCARD\r\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid contact ID",
		},
		{
			name:           "unknown id",
			path:           "/api/v1/contacts/0ujtsYcgvSTl8PAuAdqWYSMnLOv",
			body:           "BEGIN:VCARD\r\nFN:X\r\nEND:VCARD\r\n",
			expectedStatus: http.StatusNotFound,
			expectedError:  "Contact not found",
		},
		{
			name:           "empty card",
			path:           "/api/v1/contacts/" + ids[0],
			body:           "BEGIN:VCARD\r\nEND:VCARD\r\n",
			expectedStatus: http.StatusBadRequest,
			expectedError:  "No vCard found in request body",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			resp := decodeResponse(t, w, nil)
			assert.Equal(t, tt.expectedError, resp.Error)
		})
	}
}

func TestServer_DeleteContact(t *testing.T) {
	ts := setupTestServer(t)
	ids := ts.createContacts(t, twoCards)

	w := ts.do(t, http.MethodDelete, "/api/v1/contacts/"+ids[0], "")
	require.Equal(t, http.StatusOK, w.Code)
	var data map[string]string
	decodeResponse(t, w, &data)
	assert.Equal(t, "Contact deleted successfully", data["message"])

	w = ts.do(t, http.MethodGet, "/api/v1/contacts/"+ids[0], "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ts.do(t, http.MethodDelete, "/api/v1/contacts/"+ids[0], "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Search(t *testing.T) {
	ts := setupTestServer(t)
	ids := ts.createContacts(t, twoCards)

	tests := []struct {
		name           string
		query          string
		expectedStatus int
		expectedIDs    []string
	}{
		{"name prefix", "field=FN&q=ja", http.StatusOK, []string{ids[0]}},
		{"ignores case", "field=fn&q=JOHN", http.StatusOK, []string{ids[1]}},
		{"empty prefix matches all", "field=FN", http.StatusOK, ids},
		{"email", "field=EMAIL&q=jane@", http.StatusOK, []string{ids[0]}},
		{"no match", "field=TEL&q=999", http.StatusOK, []string{}},
		{"missing field", "q=ja", http.StatusBadRequest, nil},
		{"field not indexed", "field=NOTE&q=x", http.StatusBadRequest, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := ts.do(t, http.MethodGet, "/api/v1/search?"+tt.query, "")
			require.Equal(t, tt.expectedStatus, w.Code, w.Body.String())

			var found []ContactResponse
			resp := decodeResponse(t, w, &found)
			if tt.expectedIDs == nil {
				assert.False(t, resp.Success)
				return
			}

			got := make([]string, 0, len(found))
			for _, c := range found {
				got = append(got, c.ID)
			}
			assert.ElementsMatch(t, tt.expectedIDs, got)
		})
	}
}

func TestServer_Stats(t *testing.T) {
	ts := setupTestServer(t)
	ts.createContacts(t, twoCards)

	w := ts.do(t, http.MethodGet, "/api/v1/stats", "")
	require.Equal(t, http.StatusOK, w.Code)

	var stats storage.Stats
	decodeResponse(t, w, &stats)
	assert.Equal(t, 2, stats.Contacts)
	assert.Contains(t, stats.IndexedFields, "FN")
}

func TestServer_Parse(t *testing.T) {
	ts := setupTestServer(t)

	body := "BEGIN:VCARD\r\n" +
		"item1.EMAIL;TYPE=INTERNET,PREF:a@example.com\r\n" +
		"N:Doe;Jane;;;\r\n" +
		"END:VCARD\r\n" +
		"BEGIN:VCARD\r\nFN:Second\r\n"

	w := ts.do(t, http.MethodPost, "/api/v1/vcard/parse", body)
	require.Equal(t, http.StatusOK, w.Code)

	var parsed ParseResponse
	decodeResponse(t, w, &parsed)
	require.Len(t, parsed.Cards, 2)

	first := parsed.Cards[0]
	require.Len(t, first, 2)
	assert.Equal(t, "item1", first[0].Group)
	assert.Equal(t, "EMAIL", first[0].Name)
	assert.Equal(t, []ParamJSON{{Name: "TYPE", Values: []string{"INTERNET", "PREF"}}}, first[0].Params)
	assert.Equal(t, []string{"Doe", "Jane", "", "", ""}, first[1].Values)

	require.Len(t, parsed.Warnings, 1)
	assert.Contains(t, parsed.Warnings[0].Message, "END:VCARD")

	// nothing was stored
	stats, err := ts.store.Stats()
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Contacts)
}

func TestServer_Format(t *testing.T) {
	ts := setupTestServer(t)

	t.Run("canonical output", func(t *testing.T) {
		body := "BEGIN:VCARD\nFN:Jane\n  Doe\nNOTE;ENCODING=QUOTED-PRINTABLE:a=0D=0Ab\nEND:VCARD\n"
		w := ts.do(t, http.MethodPost, "/api/v1/vcard/format", body)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, "BEGIN:VCARD\r\nFN:Jane Doe\r\nNOTE:a\\nb\r\nEND:VCARD\r\n", w.Body.String())
	})

	t.Run("no card", func(t *testing.T) {
		w := ts.do(t, http.MethodPost, "/api/v1/vcard/format", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestServer_Metrics(t *testing.T) {
	ts := setupTestServer(t)
	ts.createContacts(t, twoCards)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `rolodex_http_requests_total{endpoint="/api/v1/contacts",method="POST",status_code="201"} 1`)
	assert.Contains(t, body, `rolodex_store_operations_total{operation="create",status="success"} 1`)
	assert.Contains(t, body, `rolodex_vcards_parsed_total{result="clean"} 2`)
}
