package apitest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
)

var (
	errUnknownUser = errors.New("unknown user")
	errBadID       = errors.New("bad id")
)

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeMessage answers with {"message": msg}, the error shape of the API.
func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"message": msg})
}

func writeText(w http.ResponseWriter, status int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(text))
}

func decodeJSON(r *http.Request, value any) error {
	return json.NewDecoder(r.Body).Decode(value)
}

// pathID reads the {id} route parameter, falling back to the pid query
// parameter used by the pet update route.
func pathID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	if raw == "" {
		raw = r.URL.Query().Get("pid")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errBadID
	}
	return id, nil
}

func decodeString(raw string, value any) error {
	return json.NewDecoder(strings.NewReader(raw)).Decode(value)
}

// decodeForm fills value from form fields named by its JSON keys. Numbers
// and booleans are parsed as JSON; unknown fields are ignored.
func decodeForm(form map[string][]string, value any) error {
	zero, err := json.Marshal(value)
	if err != nil {
		return err
	}
	var kinds map[string]any
	if err := json.Unmarshal(zero, &kinds); err != nil {
		return err
	}

	obj := make(map[string]json.RawMessage, len(form))
	for name, values := range form {
		if len(values) == 0 {
			continue
		}
		switch kinds[name].(type) {
		case string:
			quoted, _ := json.Marshal(values[0])
			obj[name] = quoted
		case float64, bool:
			if !json.Valid([]byte(values[0])) {
				return fmt.Errorf("field %q: invalid value %q", name, values[0])
			}
			obj[name] = json.RawMessage(values[0])
		}
	}
	raw, err := json.Marshal(obj)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, value); err != nil {
		return fmt.Errorf("decode form: %w", err)
	}
	return nil
}
