// Package store provides the generic resource store that mirrors a remote
// collection through the console REST convention (/{resource}/v1/). One
// store tracks one collection: the last-known item list, an optional
// selected record, and a per-operation-kind busy flag. All remote calls go
// through the bounded request client; the store never mutates its snapshot
// before the remote resolves.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/yosida95/uritemplate/v3"

	"github.com/apiforge/console-core/pkg/apierr"
	"github.com/apiforge/console-core/pkg/httpclient"
)

// Record is a domain entity tracked by a store. The identifier is empty
// until the remote service assigns one.
type Record interface {
	RecordID() string
}

// Kind identifies an operation kind for busy-flag tracking. A second call of
// the same kind is rejected with apierr.BusyError while the first is in
// flight; calls of different kinds may overlap and reconcile in resolution
// order.
type Kind string

// Operation kinds.
const (
	KindListing   Kind = "listing"
	KindGetting   Kind = "getting"
	KindCreating  Kind = "creating"
	KindUpdating  Kind = "updating"
	KindDeleting  Kind = "deleting"
	KindExecuting Kind = "executing"
)

// Config configures a Store.
type Config struct {
	// Client issues all remote calls.
	Client *httpclient.Client

	// BaseURL is the API server root, e.g. "https://api.example.com".
	BaseURL string

	// Resource is the path segment, e.g. "tunnels" for /tunnels/v1/.
	Resource string

	// ListKeys are the envelope keys tried, in order, for the list array.
	// The shared "data" key is always tried last.
	ListKeys []string
}

// Store mirrors one remote collection of T. It is safe for concurrent use;
// snapshot mutations happen only at call resolution, never optimistically.
type Store[T Record] struct {
	client   *httpclient.Client
	resource string
	listKeys []string

	collectionURL string
	itemTpl       *uritemplate.Template
	execTpl       *uritemplate.Template

	mu       sync.Mutex
	items    []T
	selected *T
	pending  map[Kind]bool
	errMsg   string
	okMsg    string
}

// New creates an empty Store for the given resource. The collection stays
// empty until the first successful list.
func New[T Record](cfg Config) (*Store[T], error) {
	if cfg.Client == nil {
		return nil, &apierr.ValidationError{Field: "client", Reason: "required"}
	}
	if cfg.BaseURL == "" {
		return nil, &apierr.ValidationError{Field: "base_url", Reason: "required"}
	}
	if cfg.Resource == "" {
		return nil, &apierr.ValidationError{Field: "resource", Reason: "required"}
	}

	collectionURL := strings.TrimSuffix(cfg.BaseURL, "/") + "/" + cfg.Resource + "/v1/"
	itemTpl, err := uritemplate.New(collectionURL + "{id}")
	if err != nil {
		return nil, fmt.Errorf("building item template: %w", err)
	}
	execTpl, err := uritemplate.New(collectionURL + "{id}/execute")
	if err != nil {
		return nil, fmt.Errorf("building execute template: %w", err)
	}

	keys := append([]string{}, cfg.ListKeys...)
	keys = append(keys, "data")

	return &Store[T]{
		client:        cfg.Client,
		resource:      cfg.Resource,
		listKeys:      keys,
		collectionURL: collectionURL,
		itemTpl:       itemTpl,
		execTpl:       execTpl,
		pending:       make(map[Kind]bool),
	}, nil
}

// State is a point-in-time copy of a store's collection state.
type State[T Record] struct {
	// Items is the last-known list, in server return order.
	Items []T

	// Selected is the currently selected record, or nil.
	Selected *T

	// Pending reports which operation kinds have an outstanding call.
	Pending map[Kind]bool

	// ErrorMessage is the last surfaced error, empty after a clear.
	ErrorMessage string

	// SuccessMessage is the last mutation's success message.
	SuccessMessage string
}

// Snapshot returns a copy of the current collection state.
func (s *Store[T]) Snapshot() State[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := State[T]{
		Items:          append([]T(nil), s.items...),
		Pending:        make(map[Kind]bool, len(s.pending)),
		ErrorMessage:   s.errMsg,
		SuccessMessage: s.okMsg,
	}
	if s.selected != nil {
		sel := *s.selected
		st.Selected = &sel
	}
	for k, v := range s.pending {
		st.Pending[k] = v
	}
	return st
}

// Pending reports whether the given operation kind has an outstanding call.
func (s *Store[T]) Pending(kind Kind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending[kind]
}

// List fetches the collection with the filter serialized as query
// parameters. On success the item list is replaced wholesale with the
// server-returned sequence; on failure the list is cleared and the error
// surfaced (fail-safe-empty).
func (s *Store[T]) List(ctx context.Context, filter url.Values) ([]T, error) {
	if err := s.begin(KindListing, false); err != nil {
		return nil, err
	}
	defer s.end(KindListing)

	resp, err := s.client.Do(ctx, s.collectionURL, httpclient.Options{Query: filter})
	items, err := s.decodeList(resp, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.items = nil
		s.errMsg = err.Error()
		return nil, err
	}
	s.items = items
	return append([]T(nil), items...), nil
}

// Get fetches one record and selects it. On failure the selection is
// cleared and the error propagated.
func (s *Store[T]) Get(ctx context.Context, id string, filter url.Values) (T, error) {
	var zero T
	if id == "" {
		return zero, &apierr.ValidationError{Field: "id", Reason: "required"}
	}
	if err := s.begin(KindGetting, false); err != nil {
		return zero, err
	}
	defer s.end(KindGetting)

	target := s.itemURL(id)
	resp, err := s.client.Do(ctx, target, httpclient.Options{Query: filter})
	raw, _, err := s.decodeRecord(resp, err, "fetch")

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.selected = nil
		s.errMsg = err.Error()
		return zero, err
	}
	var rec T
	if uerr := json.Unmarshal(raw, &rec); uerr != nil {
		s.selected = nil
		perr := &apierr.ParseError{Detail: "decoding " + s.resource + " record", Err: uerr}
		s.errMsg = perr.Error()
		return zero, perr
	}
	s.selected = &rec
	return rec, nil
}

// Create issues the write and, on success, appends the returned record to
// the collection and selects it. The snapshot is untouched until the remote
// resolves.
func (s *Store[T]) Create(ctx context.Context, payload T) (T, error) {
	var zero T
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, &apierr.ValidationError{Field: "payload", Reason: err.Error()}
	}
	if err := s.begin(KindCreating, true); err != nil {
		return zero, err
	}
	defer s.end(KindCreating)

	resp, err := s.client.Do(ctx, s.collectionURL, httpclient.Options{
		Method: http.MethodPost,
		Body:   body,
	})
	raw, msg, err := s.decodeRecord(resp, err, "create")

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return zero, err
	}
	var rec T
	if uerr := json.Unmarshal(raw, &rec); uerr != nil {
		perr := &apierr.ParseError{Detail: "decoding created " + s.resource, Err: uerr}
		s.errMsg = perr.Error()
		return zero, perr
	}
	s.upsertLocked(rec)
	s.selected = &rec
	s.okMsg = msg
	return rec, nil
}

// Update issues the write and, on success, overlays the returned fields on
// the matching element in place (position preserved). A matching selection
// is replaced with the same merged record.
func (s *Store[T]) Update(ctx context.Context, id string, patch any) (T, error) {
	return s.mutate(ctx, KindUpdating, id, patch, "update")
}

// Execute triggers the resource's domain action (e.g. run a generation job)
// and reconciles the returned record exactly as Update does.
func (s *Store[T]) Execute(ctx context.Context, id, userID string) (T, error) {
	return s.mutate(ctx, KindExecuting, id, map[string]string{"user_id": userID}, "execute")
}

// mutate is the shared write-then-overlay path for Update and Execute.
func (s *Store[T]) mutate(ctx context.Context, kind Kind, id string, payload any, verb string) (T, error) {
	var zero T
	if id == "" {
		return zero, &apierr.ValidationError{Field: "id", Reason: "required"}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return zero, &apierr.ValidationError{Field: "payload", Reason: err.Error()}
	}
	if err := s.begin(kind, true); err != nil {
		return zero, err
	}
	defer s.end(kind)

	target := s.itemURL(id)
	method := http.MethodPut
	if kind == KindExecuting {
		target = s.executeURL(id)
		method = http.MethodPost
	}
	resp, err := s.client.Do(ctx, target, httpclient.Options{
		Method: method,
		Body:   body,
	})
	raw, msg, err := s.decodeRecord(resp, err, verb)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return zero, err
	}
	rec, perr := s.overlayLocked(id, raw)
	if perr != nil {
		s.errMsg = perr.Error()
		return zero, perr
	}
	s.okMsg = msg
	return rec, nil
}

// Delete issues the write and, on success, removes the matching element.
// Deleting an identifier absent from the list is a no-op on the snapshot.
func (s *Store[T]) Delete(ctx context.Context, id string, filter url.Values) error {
	if id == "" {
		return &apierr.ValidationError{Field: "id", Reason: "required"}
	}
	if err := s.begin(KindDeleting, true); err != nil {
		return err
	}
	defer s.end(KindDeleting)

	resp, err := s.client.Do(ctx, s.itemURL(id), httpclient.Options{
		Method: http.MethodDelete,
		Query:  filter,
	})
	msg, err := s.decodeDelete(resp, err)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.errMsg = err.Error()
		return err
	}
	kept := s.items[:0]
	for _, it := range s.items {
		if it.RecordID() != id {
			kept = append(kept, it)
		}
	}
	s.items = kept
	if s.selected != nil && (*s.selected).RecordID() == id {
		s.selected = nil
	}
	s.okMsg = msg
	return nil
}

// ClearSelected drops the current selection.
func (s *Store[T]) ClearSelected() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = nil
}

// ClearMessages drops the error and success messages.
func (s *Store[T]) ClearMessages() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errMsg = ""
	s.okMsg = ""
}

// ClearAll resets the collection to its initial empty state. Busy flags are
// untouched; outstanding calls still reconcile when they resolve.
func (s *Store[T]) ClearAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.selected = nil
	s.errMsg = ""
	s.okMsg = ""
}

// begin sets the busy flag for kind, rejecting a same-kind overlap. Reads
// clear only the error message; mutations clear both messages.
func (s *Store[T]) begin(kind Kind, mutation bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending[kind] {
		return &apierr.BusyError{Kind: string(kind)}
	}
	s.pending[kind] = true
	s.errMsg = ""
	if mutation {
		s.okMsg = ""
	}
	return nil
}

// end releases the busy flag for kind. Deferred on every operation path so
// the flag is released on success and failure alike.
func (s *Store[T]) end(kind Kind) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending[kind] = false
}

// upsertLocked appends rec, or replaces the element sharing its identifier
// so the list never holds two records with the same ID.
func (s *Store[T]) upsertLocked(rec T) {
	id := rec.RecordID()
	if id != "" {
		for i, it := range s.items {
			if it.RecordID() == id {
				s.items[i] = rec
				return
			}
		}
	}
	s.items = append(s.items, rec)
}

// overlayLocked merges the returned fields over the element with the given
// identifier, preserving its position, and updates a matching selection.
// When the identifier is not in the list the decoded record is returned
// without touching the list.
func (s *Store[T]) overlayLocked(id string, raw json.RawMessage) (T, error) {
	var zero T
	for i, it := range s.items {
		if it.RecordID() != id {
			continue
		}
		merged := it
		if err := json.Unmarshal(raw, &merged); err != nil {
			return zero, &apierr.ParseError{Detail: "decoding updated " + s.resource, Err: err}
		}
		s.items[i] = merged
		if s.selected != nil && (*s.selected).RecordID() == id {
			sel := merged
			s.selected = &sel
		}
		return merged, nil
	}

	var rec T
	if err := json.Unmarshal(raw, &rec); err != nil {
		return zero, &apierr.ParseError{Detail: "decoding updated " + s.resource, Err: err}
	}
	if s.selected != nil && (*s.selected).RecordID() == id {
		sel := rec
		s.selected = &sel
	}
	return rec, nil
}

// itemURL expands the item template with a percent-encoded identifier.
func (s *Store[T]) itemURL(id string) string {
	u, err := s.itemTpl.Expand(uritemplate.Values{"id": uritemplate.String(id)})
	if err != nil {
		return s.collectionURL + url.PathEscape(id)
	}
	return u
}

// executeURL expands the execute template for the identifier.
func (s *Store[T]) executeURL(id string) string {
	u, err := s.execTpl.Expand(uritemplate.Values{"id": uritemplate.String(id)})
	if err != nil {
		return s.collectionURL + url.PathEscape(id) + "/execute"
	}
	return u
}
