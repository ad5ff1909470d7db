// Package handlers provides HTTP handlers for the tccollector admin API.
package handlers

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"git.home.luguber.info/inful/tccollector/internal/foundation/errors"
	"git.home.luguber.info/inful/tccollector/internal/logfields"
)

const maxBodyBytes = 1 << 20

// writeJSON serializes the provided value to JSON and writes it with the given
// status code. Encoding is performed into an intermediate buffer so that we
// don't send partial responses if serialization fails.
func writeJSON(w http.ResponseWriter, status int, v any) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(true)
	if err := enc.Encode(v); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		slog.Error("failed writing JSON response body", logfields.Error(err))
		return err
	}
	return nil
}

// writeJSONPretty pretty prints when pretty=1 or pretty=true is in the query.
func writeJSONPretty(w http.ResponseWriter, r *http.Request, status int, v any) error {
	if r != nil {
		if p := r.URL.Query().Get("pretty"); p == "1" || p == "true" {
			b, err := json.MarshalIndent(v, "", "  ")
			if err == nil {
				w.Header().Set("Content-Type", "application/json; charset=utf-8")
				w.WriteHeader(status)
				if _, werr := w.Write(append(b, '\n')); werr != nil {
					slog.Error("failed writing pretty JSON", logfields.Error(werr))
					return werr
				}
				return nil
			}
			slog.Warn("pretty JSON marshal failed, falling back to standard encode", logfields.Error(err))
		}
	}
	return writeJSON(w, status, v)
}

// decodeJSON decodes the request body into v. It reports false when the body
// is empty. Unknown fields are rejected.
func decodeJSON(r *http.Request, v any) (bool, error) {
	if r.Body == nil {
		return false, nil
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if stderrors.Is(err, io.EOF) {
			return false, nil
		}
		return false, errors.WrapError(err, errors.CategoryValidation, "invalid request body").Build()
	}
	return true, nil
}

// intQuery parses an optional integer query parameter, returning def when absent.
func intQuery(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ValidationError("query parameter must be an integer").
			WithContext("parameter", name).
			WithContext("value", raw).
			Build()
	}
	return n, nil
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, errors.ValidationError("query parameter must be a boolean").
			WithContext("parameter", name).
			WithContext("value", raw).
			Build()
	}
	return b, nil
}

func writeOrFail(adapter *errors.HTTPErrorAdapter, w http.ResponseWriter, r *http.Request, status int, v any, what string) {
	if err := writeJSONPretty(w, r, status, v); err != nil {
		adapter.WriteErrorResponse(w, r, errors.WrapError(err, errors.CategoryInternal, "failed to write "+what+" response").Build())
	}
}
