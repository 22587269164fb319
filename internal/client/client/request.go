package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
)

// Request describes one API call. Body is kept as bytes so the call can be
// re-issued after a token refresh.
type Request struct {
	Method      string
	Path        string
	Query       url.Values
	Header      http.Header
	Body        []byte
	ContentType string
	// Public requests never carry the bearer token and are not refreshed.
	Public bool
}

// Response is a buffered HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// JSONRequest builds a request with a JSON-encoded body (nil in means none).
func JSONRequest(method, path string, in any) (Request, error) {
	req := Request{Method: method, Path: path}
	if in == nil {
		return req, nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return Request{}, fmt.Errorf("encode body: %w", err)
	}
	req.Body = b
	req.ContentType = "application/json"
	return req, nil
}

// Part is one section of a multipart/form-data body. Exactly one of JSON,
// Value or Data is used, in that order of preference.
type Part struct {
	Name        string
	JSON        any
	Value       string
	FileName    string
	ContentType string
	Data        []byte
}

// MultipartBody is a form with JSON parts, plain fields and file parts.
type MultipartBody struct {
	Parts []Part
}

// JSONPart adds a part holding v encoded as application/json.
func (m *MultipartBody) JSONPart(name string, v any) {
	m.Parts = append(m.Parts, Part{Name: name, JSON: v})
}

// Field adds a plain text field.
func (m *MultipartBody) Field(name, value string) {
	m.Parts = append(m.Parts, Part{Name: name, Value: value})
}

// File adds a file part from memory.
func (m *MultipartBody) File(name, fileName string, data []byte) {
	m.Parts = append(m.Parts, Part{Name: name, FileName: fileName, Data: data})
}

// FileFromPath reads path and adds it as a file part. An empty path is a no-op.
func (m *MultipartBody) FileFromPath(name, path string) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	m.File(name, filepath.Base(path), data)
	return nil
}

// Encode renders the body and returns it with its content type.
func (m MultipartBody) Encode() ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	for _, p := range m.Parts {
		h := make(textproto.MIMEHeader)
		switch {
		case p.JSON != nil:
			b, err := json.Marshal(p.JSON)
			if err != nil {
				return nil, "", fmt.Errorf("encode part %s: %w", p.Name, err)
			}
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q`, p.Name))
			h.Set("Content-Type", "application/json")
			if err := writePart(w, h, b); err != nil {
				return nil, "", err
			}
		case p.FileName != "" || p.Data != nil:
			ct := p.ContentType
			if ct == "" {
				ct = http.DetectContentType(p.Data)
			}
			h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, p.Name, p.FileName))
			h.Set("Content-Type", ct)
			if err := writePart(w, h, p.Data); err != nil {
				return nil, "", err
			}
		default:
			if err := w.WriteField(p.Name, p.Value); err != nil {
				return nil, "", fmt.Errorf("write field %s: %w", p.Name, err)
			}
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("close multipart: %w", err)
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

func writePart(w *multipart.Writer, h textproto.MIMEHeader, data []byte) error {
	pw, err := w.CreatePart(h)
	if err != nil {
		return fmt.Errorf("create part: %w", err)
	}
	if _, err := pw.Write(data); err != nil {
		return fmt.Errorf("write part: %w", err)
	}
	return nil
}

// MultipartRequest builds a request carrying an encoded multipart body.
func MultipartRequest(method, path string, body MultipartBody) (Request, error) {
	b, ct, err := body.Encode()
	if err != nil {
		return Request{}, err
	}
	return Request{Method: method, Path: path, Body: b, ContentType: ct}, nil
}
