package apitest

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/g1appdev/hubbits/internal/client/models"
)

// entity serves CRUD for one collection. Bodies are JSON unless part is
// set, in which case the record is a JSON form field named part, or flat
// (flatCreate for creates only), in which case every record field is its
// own form field. Multipart bodies may carry a file in filePart.
type entity[T record[T]] struct {
	s          *Server
	rows       *table[T]
	name       string
	part       string
	flat       bool
	flatCreate bool
	filePart   string
	setImage   func(T, string) T
}

func (e *entity[T]) list(w http.ResponseWriter, r *http.Request) {
	e.s.mu.Lock()
	items := e.rows.list()
	e.s.mu.Unlock()
	writeJSON(w, http.StatusOK, items)
}

func (e *entity[T]) decode(r *http.Request) (T, *Upload, error) {
	var v T
	switch {
	case e.flat, r.Method == http.MethodPost && e.flatCreate:
		upload, err := e.s.readFlatForm(r, e.filePart, &v)
		return v, upload, err
	case e.part != "":
		upload, err := e.s.readMultipart(r, e.part, e.filePart, &v)
		return v, upload, err
	}
	err := decodeJSON(r, &v)
	return v, nil, err
}

func (e *entity[T]) create(w http.ResponseWriter, r *http.Request) {
	v, upload, err := e.decode(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := models.Validate(v); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if upload != nil && e.setImage != nil {
		v = e.setImage(v, e.s.storeUpload(r, *upload))
	}
	writeJSON(w, http.StatusCreated, e.rows.insert(v))
}

func (e *entity[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	v, upload, err := e.decode(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := models.Validate(v); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if upload != nil && e.setImage != nil {
		v = e.setImage(v, e.s.storeUpload(r, *upload))
	}
	updated, ok := e.rows.replace(id, v)
	if !ok {
		writeMessage(w, http.StatusNotFound, e.name+" not found")
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (e *entity[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if !e.rows.remove(id) {
		writeMessage(w, http.StatusNotFound, e.name+" not found")
		return
	}
	writeText(w, http.StatusOK, e.name+" deleted successfully")
}

func (s *Server) volunteerSignup(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var form models.VolunteerSignUp
	if err := decodeJSON(r, &form); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}
	form.OpportunityID = id
	if err := models.Validate(form); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	form.Password = ""

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.opportunities.get(id); !ok {
		writeMessage(w, http.StatusNotFound, "Opportunity not found")
		return
	}
	for _, prev := range s.signups[id] {
		if strings.EqualFold(prev.Email, form.Email) {
			writeMessage(w, http.StatusBadRequest, "Already signed up for this opportunity")
			return
		}
	}
	s.signups[id] = append(s.signups[id], form)
	writeMessage(w, http.StatusOK, "Signed up successfully")
}

func (s *Server) signupCount(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	s.mu.Lock()
	_, ok := s.opportunities.get(id)
	n := len(s.signups[id])
	s.mu.Unlock()
	if !ok {
		writeMessage(w, http.StatusNotFound, "Opportunity not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(strconv.Itoa(n)))
}

func (s *Server) sponsor(w http.ResponseWriter, r *http.Request) {
	pid, err := pathID(r)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}
	var body models.Sponsorship
	if err := decodeJSON(r, &body); err != nil {
		writeMessage(w, http.StatusBadRequest, "malformed request")
		return
	}
	if err := models.Validate(body); err != nil {
		writeMessage(w, http.StatusBadRequest, err.Error())
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	pet, ok := s.pets.get(pid)
	if !ok {
		writeMessage(w, http.StatusNotFound, "Pet not found")
		return
	}
	if !pet.AllowSponsorship {
		writeMessage(w, http.StatusBadRequest, "Pet is not open for sponsorship")
		return
	}
	s.sponsored[pid] += body.AmountGained
	writeJSON(w, http.StatusOK, map[string]any{"pid": pid, "amountGained": s.sponsored[pid]})
}
