// Package clienttest provides an in-process fake of the appointment API
// for transport, session and repository tests.
package clienttest

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"testing"
)

// Fixed names used by the fake.
const (
	CSRFPath      = "/sanctum/csrf-cookie"
	CSRFCookie    = "XSRF-TOKEN"
	CSRFHeader    = "X-XSRF-TOKEN"
	SessionCookie = "laravel_session"

	Email    = "ada@example.com"
	Password = "secret"
)

// Request is a request the fake received.
type Request struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

type scripted struct {
	status int
	body   string
}

// Server is a fake API. Mutating requests must carry the current CSRF token;
// /api routes other than login require the session cookie.
type Server struct {
	*httptest.Server

	mu           sync.Mutex
	requests     []Request
	csrfIssued   int
	token        string
	sessions     map[string]bool
	scripts      map[string][]scripted
	appointments []map[string]any
	services     []map[string]any
	nextID       int
}

// NewServer starts a fake and stops it when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		sessions: make(map[string]bool),
		scripts:  make(map[string][]scripted),
		nextID:   1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Script queues a canned response for the next request matching method and path.
// Scripted responses are served before any CSRF or session check.
func (s *Server) Script(method, path string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := method + " " + path
	s.scripts[key] = append(s.scripts[key], scripted{status: status, body: body})
}

// ExpireToken invalidates the current CSRF token without issuing a new one.
func (s *Server) ExpireToken() {
	s.mu.Lock()
	s.token = "expired"
	s.mu.Unlock()
}

// KillSessions forgets every session so the next authenticated call gets 401.
func (s *Server) KillSessions() {
	s.mu.Lock()
	s.sessions = make(map[string]bool)
	s.mu.Unlock()
}

// SeedService adds a service type and returns its id.
func (s *Server) SeedService(name, description string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.allocID()
	s.services = append(s.services, map[string]any{"id": id, "name": name, "description": description})
	return strconv.Itoa(id)
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Count returns how many requests matched method and path.
func (s *Server) Count(method, path string) int {
	n := 0
	for _, r := range s.Requests() {
		if r.Method == method && r.Path == path {
			n++
		}
	}
	return n
}

// CSRFIssued returns how many tokens the fake has issued.
func (s *Server) CSRFIssued() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.csrfIssued
}

// Token returns the current decoded CSRF token.
func (s *Server) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Server) allocID() int {
	id := s.nextID
	s.nextID++
	return id
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Header: r.Header.Clone(), Body: body})

	key := r.Method + " " + r.URL.Path
	if queue := s.scripts[key]; len(queue) > 0 {
		s.scripts[key] = queue[1:]
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(queue[0].status)
		io.WriteString(w, queue[0].body)
		return
	}

	if r.Method == http.MethodGet && r.URL.Path == CSRFPath {
		s.csrfIssued++
		s.token = fmt.Sprintf("tok=%d/xsrf", s.csrfIssued)
		http.SetCookie(w, &http.Cookie{Name: CSRFCookie, Value: url.QueryEscape(s.token), Path: "/"})
		w.WriteHeader(http.StatusNoContent)
		return
	}

	if isMutating(r.Method) && (s.token == "" || r.Header.Get(CSRFHeader) != s.token) {
		writeJSON(w, 419, map[string]any{"message": "CSRF token mismatch."})
		return
	}

	if r.URL.Path == "/api/login" && r.Method == http.MethodPost {
		s.login(w, body)
		return
	}

	if !s.authenticated(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Unauthenticated."})
		return
	}

	switch {
	case r.URL.Path == "/api/me" && r.Method == http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{"id": 7, "name": " Ada Lovelace ", "email": Email, "role": "admin"})
	case r.URL.Path == "/api/logout" && r.Method == http.MethodPost:
		if c, err := r.Cookie(SessionCookie); err == nil {
			delete(s.sessions, c.Value)
		}
		http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: "", Path: "/", MaxAge: -1})
		w.WriteHeader(http.StatusNoContent)
	case strings.HasPrefix(r.URL.Path, "/api/appointments"):
		s.crud(w, r, body, "/api/appointments", &s.appointments, s.createAppointment)
	case strings.HasPrefix(r.URL.Path, "/api/service-types"):
		s.crud(w, r, body, "/api/service-types", &s.services, s.createService)
	default:
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "Not found."})
	}
}

func (s *Server) login(w http.ResponseWriter, body []byte) {
	var creds struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	_ = json.Unmarshal(body, &creds)
	if creds.Email == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"message": "The email field is required.",
			"errors":  map[string][]string{"email": {"The email field is required."}},
		})
		return
	}
	if creds.Email != Email || creds.Password != Password {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid credentials"})
		return
	}

	sid := fmt.Sprintf("sess-%d", len(s.requests))
	s.sessions[sid] = true
	http.SetCookie(w, &http.Cookie{Name: SessionCookie, Value: sid, Path: "/", HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"message": "ok"})
}

func (s *Server) authenticated(r *http.Request) bool {
	c, err := r.Cookie(SessionCookie)
	return err == nil && s.sessions[c.Value]
}

type createFunc func(in map[string]any) (map[string]any, map[string][]string)

func (s *Server) crud(w http.ResponseWriter, r *http.Request, body []byte, base string, items *[]map[string]any, create createFunc) {
	rest := strings.Trim(strings.TrimPrefix(r.URL.Path, base), "/")

	if rest == "" {
		switch r.Method {
		case http.MethodGet:
			writeJSON(w, http.StatusOK, *items)
		case http.MethodPost:
			var in map[string]any
			_ = json.Unmarshal(body, &in)
			rec, errs := create(in)
			if len(errs) > 0 {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"message": "The given data was invalid.", "errors": errs})
				return
			}
			*items = append(*items, rec)
			writeJSON(w, http.StatusCreated, rec)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
		return
	}

	idx := -1
	for i, it := range *items {
		if fmt.Sprint(it["id"]) == rest {
			idx = i
		}
	}
	if idx < 0 {
		writeJSON(w, http.StatusNotFound, map[string]any{"message": "No query results."})
		return
	}

	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, (*items)[idx])
	case http.MethodPut, http.MethodPatch:
		var in map[string]any
		_ = json.Unmarshal(body, &in)
		for k, v := range in {
			if k != "id" {
				(*items)[idx][k] = v
			}
		}
		if sid, ok := in["service_type_id"]; ok {
			(*items)[idx]["service_type"] = s.serviceSnapshot(sid)
		}
		writeJSON(w, http.StatusOK, (*items)[idx])
	case http.MethodDelete:
		*items = append((*items)[:idx], (*items)[idx+1:]...)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) createAppointment(in map[string]any) (map[string]any, map[string][]string) {
	errs := make(map[string][]string)
	for _, field := range []string{"name", "email", "phone", "vehicle", "appointment_time", "service_type_id"} {
		if v, ok := in[field]; !ok || v == "" || v == nil {
			errs[field] = append(errs[field], "The "+strings.ReplaceAll(field, "_", " ")+" field is required.")
		}
	}
	for field := range in {
		if !allowedAppointmentField(field) {
			errs[field] = append(errs[field], "The "+field+" field is prohibited.")
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}

	rec := map[string]any{
		"id":               s.allocID(),
		"status":           "pending",
		"service_type":     s.serviceSnapshot(in["service_type_id"]),
		"created_at":       "2024-06-01T10:00:00",
		"updated_at":       "2024-06-01T10:00:00",
		"name":             in["name"],
		"email":            in["email"],
		"phone":            in["phone"],
		"vehicle":          in["vehicle"],
		"appointment_time": in["appointment_time"],
		"service_type_id":  in["service_type_id"],
	}
	return rec, nil
}

func (s *Server) createService(in map[string]any) (map[string]any, map[string][]string) {
	if name, _ := in["name"].(string); name == "" {
		return nil, map[string][]string{"name": {"The name field is required."}}
	}
	return map[string]any{"id": s.allocID(), "name": in["name"], "description": in["description"]}, nil
}

func (s *Server) serviceSnapshot(id any) map[string]any {
	for _, svc := range s.services {
		if fmt.Sprint(svc["id"]) == fmt.Sprint(id) {
			return map[string]any{"id": svc["id"], "name": svc["name"], "description": svc["description"]}
		}
	}
	return nil
}

func allowedAppointmentField(field string) bool {
	switch field {
	case "name", "email", "phone", "vehicle", "appointment_time", "service_type_id":
		return true
	}
	return false
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// SortedKeys returns the keys of a decoded JSON object in order.
func SortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
