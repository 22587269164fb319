package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/client"
	"github.com/g1appdev/hubbits/internal/client/listsync"
	"github.com/g1appdev/hubbits/internal/client/models"
)

// ErrNoServerID is returned when a create response lacks the identifier.
var ErrNoServerID = errors.New("server response carried no identifier")

// Endpoints describes one collection of the API. Update and Delete contain
// an "{id}" placeholder.
//
// Bodies are JSON unless the collection takes multipart. With Part set,
// the record travels as a JSON part named Part; with Flat (or FlatCreate,
// for creates only) each record field is its own form field. Either way an
// attachment goes in the file part FilePart. JSONCreate keeps creates as
// plain JSON. Envelope names the response field that wraps an updated
// record.
type Endpoints struct {
	Name       string
	List       string
	Create     string
	Update     string
	Delete     string
	Part       string
	FilePart   string
	Flat       bool
	FlatCreate bool
	JSONCreate bool
	Envelope   string
}

// Encoding is how a create or update body is sent.
type Encoding int

const (
	EncodeJSON Encoding = iota
	EncodePart
	EncodeFlat
)

// Encoding reports how method (POST or PUT) bodies are sent.
func (e Endpoints) Encoding(method string) Encoding {
	create := method == http.MethodPost
	switch {
	case create && e.JSONCreate:
		return EncodeJSON
	case e.Flat, create && e.FlatCreate:
		return EncodeFlat
	case e.Part != "":
		return EncodePart
	}
	return EncodeJSON
}

// Uploads reports whether method bodies carry an attachment.
func (e Endpoints) Uploads(method string) bool {
	return e.FilePart != "" && e.Encoding(method) != EncodeJSON
}

func (e Endpoints) path(tmpl string, id int64) string {
	return strings.ReplaceAll(tmpl, "{id}", strconv.FormatInt(id, 10))
}

var (
	PetEndpoints = Endpoints{
		Name:       "pets",
		List:       "/api/pet/getAllPets",
		Create:     "/api/pet/postpetrecord",
		Update:     "/api/pet/putPetDetails?pid={id}",
		Delete:     "/api/pet/deletePetDetails/{id}",
		FilePart:   "photo",
		FlatCreate: true,
	}
	AdoptionEndpoints = Endpoints{
		Name:   "adoptions",
		List:   "/api/adoptions",
		Create: "/api/adoptions",
		Update: "/api/adoptions/{id}",
		Delete: "/api/adoptions/{id}",
	}
	DonationEndpoints = Endpoints{
		Name:   "donations",
		List:   "/api/donations",
		Create: "/api/donations",
		Update: "/api/donations/{id}",
		Delete: "/api/donations/{id}",
	}
	ArticleEndpoints = Endpoints{
		Name:     "articles",
		List:     "/api/newsfeed",
		Create:   "/api/newsfeed",
		Update:   "/api/newsfeed/{id}",
		Delete:   "/api/newsfeed/{id}",
		Part:     "article",
		FilePart: "image",
	}
	OpportunityEndpoints = Endpoints{
		Name:     "opportunities",
		List:     "/api/volunteer/opportunities",
		Create:   "/api/volunteer/opportunity",
		Update:   "/api/volunteer/opportunity/{id}",
		Delete:   "/api/volunteer/opportunity/{id}",
		Part:       "opportunity",
		FilePart:   "volunteerImage",
		FlatCreate: true,
	}
	LostFoundEndpoints = Endpoints{
		Name:     "lostfound",
		List:     "/api/lostandfound",
		Create:   "/api/lostandfound",
		Update:   "/api/lostandfound/{id}",
		Delete:   "/api/lostandfound/{id}",
		FilePart: "imagefile",
		Flat:     true,
	}
	UserEndpoints = Endpoints{
		Name:       "users",
		List:       "/api/users",
		Create:     "/api/users",
		Update:     "/api/users/{id}",
		Delete:     "/api/users/{id}",
		Part:       "user",
		FilePart:   "profilePicture",
		JSONCreate: true,
		Envelope:   "updatedUser",
	}
)

// Resource is the remote side of a list for one entity.
type Resource[T listsync.Identified[T]] struct {
	api API
	ep  Endpoints
}

var _ listsync.Remote[models.Pet] = (*Resource[models.Pet])(nil)

func NewResource[T listsync.Identified[T]](api API, ep Endpoints) *Resource[T] {
	return &Resource[T]{api: api, ep: ep}
}

func (r *Resource[T]) Endpoints() Endpoints { return r.ep }

func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var items []T
	if err := r.api.GetJSON(ctx, r.ep.List, &items); err != nil {
		return nil, fmt.Errorf("list %s: %w", r.ep.Name, err)
	}
	return items, nil
}

func (r *Resource[T]) Create(ctx context.Context, draft T) (T, error) {
	created, _, err := r.send(ctx, http.MethodPost, r.ep.Create, draft)
	if err != nil {
		return created, fmt.Errorf("create %s: %w", r.ep.Name, err)
	}
	if created.RecordID() == 0 {
		return created, fmt.Errorf("create %s: %w", r.ep.Name, ErrNoServerID)
	}
	return created, nil
}

// Update sends value and returns the stored record. A success response
// without a record (empty, plain text or missing the envelope) means the
// server took value as sent.
func (r *Resource[T]) Update(ctx context.Context, id int64, value T) (T, error) {
	value = value.WithRecordID(id)
	updated, ok, err := r.send(ctx, http.MethodPut, r.ep.path(r.ep.Update, id), value)
	if err != nil {
		return updated, fmt.Errorf("update %s %d: %w", r.ep.Name, id, err)
	}
	if !ok || updated.RecordID() == 0 {
		return value, nil
	}
	return updated, nil
}

func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	if _, err := r.api.Do(ctx, client.Request{Method: http.MethodDelete, Path: r.ep.path(r.ep.Delete, id)}); err != nil {
		return fmt.Errorf("delete %s %d: %w", r.ep.Name, id, err)
	}
	return nil
}

// send reports whether the response carried a record.
func (r *Resource[T]) send(ctx context.Context, method, path string, v T) (T, bool, error) {
	var out T
	// A string target takes any body, JSON or not.
	var text string
	if err := r.sendBody(ctx, method, path, v, &text); err != nil {
		return out, false, err
	}
	raw := []byte(text)

	if method == http.MethodPut && r.ep.Envelope != "" {
		var wrapped map[string]json.RawMessage
		if json.Unmarshal(raw, &wrapped) != nil {
			return out, false, nil
		}
		if raw = wrapped[r.ep.Envelope]; raw == nil {
			return out, false, nil
		}
	}
	if len(raw) == 0 || raw[0] != '{' {
		return out, false, nil
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, false, fmt.Errorf("decode response: %w", err)
	}
	return out, true, nil
}

func (r *Resource[T]) sendBody(ctx context.Context, method, path string, v T, out any) error {
	enc := r.ep.Encoding(method)
	if enc == EncodeJSON {
		return r.api.SendJSON(ctx, method, path, v, out)
	}

	file := ""
	if r.ep.FilePart != "" {
		file = attachment(ctx)
	}
	var body client.MultipartBody
	if enc == EncodePart {
		body.JSONPart(r.ep.Part, v)
	} else {
		fields, err := formFields(v)
		if err != nil {
			return err
		}
		for _, f := range fields {
			if f.name == r.ep.FilePart && file != "" {
				continue
			}
			body.Field(f.name, f.value)
		}
	}
	if err := body.FileFromPath(r.ep.FilePart, file); err != nil {
		return err
	}
	return r.api.SendMultipart(ctx, method, path, body, out)
}

type formField struct {
	name, value string
}

// formFields flattens v into form fields named by its JSON keys, in key
// order. Nulls and nested values are left out.
func formFields(v any) ([]formField, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("flatten %T: %w", v, err)
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fields := make([]formField, 0, len(keys))
	for _, k := range keys {
		switch val := m[k].(type) {
		case string:
			fields = append(fields, formField{k, val})
		case json.Number:
			fields = append(fields, formField{k, val.String()})
		case bool:
			fields = append(fields, formField{k, strconv.FormatBool(val)})
		}
	}
	return fields, nil
}
