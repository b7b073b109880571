package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/apiforge/console-core/pkg/apierr"
	"github.com/apiforge/console-core/pkg/httpclient"
)

// envelope is the common success wrapper: {"data": ..., "message": ...}.
// List responses substitute a resource-specific array key for "data", which
// decodeList normalizes away.
type envelope struct {
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// decodeList normalizes a list response to the record array. The array is
// looked up under each configured envelope key in order; an object carrying
// none of them is an unrecognized wire shape and fails with ParseError
// rather than guessing.
func (s *Store[T]) decodeList(resp *httpclient.Response, err error) ([]T, error) {
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, &apierr.HTTPError{
			Status:  resp.Status,
			Message: s.errorMessage(resp, "failed to list "+s.resource),
		}
	}
	if !resp.IsJSON() {
		return nil, &apierr.ParseError{Detail: "list response is not JSON"}
	}

	var body map[string]json.RawMessage
	if uerr := json.Unmarshal(resp.Body, &body); uerr != nil {
		return nil, &apierr.ParseError{Detail: "decoding list envelope", Err: uerr}
	}
	for _, key := range s.listKeys {
		raw, ok := body[key]
		if !ok || string(raw) == "null" {
			continue
		}
		var items []T
		if uerr := json.Unmarshal(raw, &items); uerr != nil {
			return nil, &apierr.ParseError{Detail: "decoding " + key + " array", Err: uerr}
		}
		return items, nil
	}
	return nil, &apierr.ParseError{
		Detail: fmt.Sprintf("list envelope has none of the keys %s", strings.Join(s.listKeys, ", ")),
	}
}

// decodeRecord extracts the data payload and success message from a single-
// record response.
func (s *Store[T]) decodeRecord(resp *httpclient.Response, err error, verb string) (json.RawMessage, string, error) {
	if err != nil {
		return nil, "", err
	}
	if !resp.OK() {
		return nil, "", &apierr.HTTPError{
			Status:  resp.Status,
			Message: s.errorMessage(resp, fmt.Sprintf("failed to %s %s", verb, s.resource)),
		}
	}
	if !resp.IsJSON() {
		return nil, "", &apierr.ParseError{Detail: verb + " response is not JSON"}
	}

	var env envelope
	if uerr := json.Unmarshal(resp.Body, &env); uerr != nil {
		return nil, "", &apierr.ParseError{Detail: "decoding " + verb + " envelope", Err: uerr}
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, "", &apierr.ParseError{Detail: verb + " envelope has no data"}
	}
	msg := env.Message
	if msg == "" {
		msg = fmt.Sprintf("%s %s succeeded", s.resource, verb)
	}
	return env.Data, msg, nil
}

// decodeDelete extracts the result message from a delete response, which
// the backend may send as JSON or plain text.
func (s *Store[T]) decodeDelete(resp *httpclient.Response, err error) (string, error) {
	if err != nil {
		return "", err
	}

	var msg string
	if resp.IsJSON() {
		var env envelope
		if uerr := json.Unmarshal(resp.Body, &env); uerr == nil {
			msg = env.Message
		}
	} else {
		msg = strings.TrimSpace(string(resp.Body))
	}

	if !resp.OK() {
		if msg == "" {
			msg = fmt.Sprintf("failed to delete %s (status %d)", s.resource, resp.Status)
		}
		return "", &apierr.HTTPError{Status: resp.Status, Message: msg}
	}
	if msg == "" {
		msg = s.resource + " deleted"
	}
	return msg, nil
}

// errorMessage pulls the server message from a non-2xx envelope, falling
// back to the fixed string when absent or unparseable.
func (s *Store[T]) errorMessage(resp *httpclient.Response, fallback string) string {
	if resp.IsJSON() {
		var env envelope
		if err := json.Unmarshal(resp.Body, &env); err == nil && env.Message != "" {
			return env.Message
		}
	}
	return fallback
}
