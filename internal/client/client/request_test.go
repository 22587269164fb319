package client

import (
	"bytes"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMultipartBody_Encode(t *testing.T) {
	dir := t.TempDir()
	img := filepath.Join(dir, "rex.jpg")
	require.NoError(t, os.WriteFile(img, []byte{0xFF, 0xD8, 0xFF, 0xE0}, 0o600))

	var body MultipartBody
	body.JSONPart("opportunity", map[string]any{"title": "Walk dogs"})
	body.Field("note", "hello")
	require.NoError(t, body.FileFromPath("volunteerImage", img))
	require.NoError(t, body.FileFromPath("ignored", ""))

	data, ct, err := body.Encode()
	require.NoError(t, err)

	mt, params, err := mime.ParseMediaType(ct)
	require.NoError(t, err)
	assert.Equal(t, "multipart/form-data", mt)

	r := multipart.NewReader(bytes.NewReader(data), params["boundary"])

	p, err := r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "opportunity", p.FormName())
	assert.Equal(t, "application/json", p.Header.Get("Content-Type"))
	b, _ := io.ReadAll(p)
	assert.JSONEq(t, `{"title":"Walk dogs"}`, string(b))

	p, err = r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "note", p.FormName())

	p, err = r.NextPart()
	require.NoError(t, err)
	assert.Equal(t, "volunteerImage", p.FormName())
	assert.Equal(t, "rex.jpg", p.FileName())
	assert.Equal(t, "image/jpeg", p.Header.Get("Content-Type"))

	_, err = r.NextPart()
	assert.ErrorIs(t, err, io.EOF)
}

func TestMultipartBody_FileFromPathMissing(t *testing.T) {
	var body MultipartBody
	require.Error(t, body.FileFromPath("image", filepath.Join(t.TempDir(), "nope.png")))
}

func TestJSONRequest(t *testing.T) {
	req, err := JSONRequest(http.MethodPost, "/api/donations", map[string]int{"amount": 5})
	require.NoError(t, err)
	assert.Equal(t, "application/json", req.ContentType)
	assert.JSONEq(t, `{"amount":5}`, string(req.Body))

	req, err = JSONRequest(http.MethodDelete, "/api/donations/1", nil)
	require.NoError(t, err)
	assert.Nil(t, req.Body)
}

func TestDecode_RawStringBody(t *testing.T) {
	var s string
	require.NoError(t, Decode(&Response{Body: []byte("tok123\n")}, &s))
	assert.Equal(t, "tok123", s)

	require.NoError(t, Decode(&Response{Body: []byte(`"quoted"`)}, &s))
	assert.Equal(t, "quoted", s)

	var m map[string]any
	require.Error(t, Decode(&Response{Body: []byte("not json")}, &m))
}
