// Package testsupport provides fixture helpers and an in-memory fake of the
// product backends for tests and examples.
package testsupport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/goliatone/go-query-cache/products"
)

// Call counter names used by ProductsServer.Calls.
const (
	CallList     = "list"
	CallSearch   = "search"
	CallGet      = "get"
	CallNeeds    = "needs"
	CallAdd      = "add"
	CallUpdate   = "update"
	CallDelete   = "delete"
	CallClassify = "classify"
)

// ProductsServer is an in-memory implementation of both backends the client
// talks to: the primary products API and the secondary classification API.
// It counts calls per endpoint so tests can assert deduplication, and it can
// hold the list endpoint open so tests can observe in-flight refetches.
//
// It deliberately takes no *testing.T so examples can run it too.
type ProductsServer struct {
	mu          sync.Mutex
	byID        map[int64]products.Product
	nextID      int64
	calls       map[string]int
	needs       []int64
	classified  [][]int64
	holdList    chan struct{}
	api         *httptest.Server
	classifyAPI *httptest.Server
}

// NewProductsServer starts both fake backends, seeded with the given
// products (ids of zero are assigned).
func NewProductsServer(seed ...products.Product) *ProductsServer {
	s := &ProductsServer{
		byID:   make(map[int64]products.Product),
		nextID: 1,
		calls:  make(map[string]int),
	}
	for _, p := range seed {
		if p.ID == 0 {
			p.ID = s.nextID
		}
		if p.ID >= s.nextID {
			s.nextID = p.ID + 1
		}
		s.byID[p.ID] = p
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /products", s.handleList)
	mux.HandleFunc("GET /products/search", s.handleSearch)
	mux.HandleFunc("GET /products/needs-classification", s.handleNeeds)
	mux.HandleFunc("GET /products/{id}", s.handleGet)
	mux.HandleFunc("POST /products", s.handleAdd)
	mux.HandleFunc("PATCH /products/{id}", s.handleUpdate)
	mux.HandleFunc("DELETE /products/{id}", s.handleDelete)
	s.api = httptest.NewServer(mux)

	classifyMux := http.NewServeMux()
	classifyMux.HandleFunc("POST /products", s.handleClassify)
	s.classifyAPI = httptest.NewServer(classifyMux)

	return s
}

// URL returns the primary backend's base URL.
func (s *ProductsServer) URL() string { return s.api.URL }

// ClassifyURL returns the classification backend's base URL.
func (s *ProductsServer) ClassifyURL() string { return s.classifyAPI.URL }

// Close shuts both backends down.
func (s *ProductsServer) Close() {
	s.api.Close()
	s.classifyAPI.Close()
}

// Calls returns how many requests the named endpoint has served.
func (s *ProductsServer) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Products returns a snapshot of the stored products sorted by id.
func (s *ProductsServer) Products() []products.Product {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// SetNeedsClassification sets the ids the needs-classification endpoint
// returns.
func (s *ProductsServer) SetNeedsClassification(ids ...int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.needs = append([]int64(nil), ids...)
}

// Classified returns the id batches the classification backend received.
func (s *ProductsServer) Classified() [][]int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]int64(nil), s.classified...)
}

// HoldList makes subsequent list requests block until the returned release
// function is called. Used to observe in-flight background refetches.
func (s *ProductsServer) HoldList() (release func()) {
	gate := make(chan struct{})
	s.mu.Lock()
	s.holdList = gate
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			if s.holdList == gate {
				s.holdList = nil
			}
			s.mu.Unlock()
			close(gate)
		})
	}
}

func (s *ProductsServer) snapshotLocked() []products.Product {
	out := make([]products.Product, 0, len(s.byID))
	for _, p := range s.byID {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *ProductsServer) handleList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[CallList]++
	gate := s.holdList
	items := s.snapshotLocked()
	s.mu.Unlock()

	if gate != nil {
		<-gate
		// Re-read after the gate so the held response reflects mutations
		// applied while it was blocked.
		s.mu.Lock()
		items = s.snapshotLocked()
		s.mu.Unlock()
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *ProductsServer) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.ToLower(r.URL.Query().Get("q"))

	s.mu.Lock()
	s.calls[CallSearch]++
	var items []products.Product
	for _, p := range s.snapshotLocked() {
		if strings.Contains(strings.ToLower(p.Name), q) || strings.Contains(strings.ToLower(p.Description), q) {
			items = append(items, p)
		}
	}
	s.mu.Unlock()

	if items == nil {
		items = []products.Product{}
	}
	respondJSON(w, http.StatusOK, items)
}

func (s *ProductsServer) handleNeeds(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[CallNeeds]++
	ids := append([]int64(nil), s.needs...)
	s.mu.Unlock()

	if ids == nil {
		ids = []int64{}
	}
	respondJSON(w, http.StatusOK, ids)
}

func (s *ProductsServer) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	s.calls[CallGet]++
	p, found := s.byID[id]
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *ProductsServer) handleAdd(w http.ResponseWriter, r *http.Request) {
	var req products.ProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	s.calls[CallAdd]++
	p := products.Product{
		ID:          s.nextID,
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Category:    req.Category,
		Stock:       req.Stock,
	}
	s.nextID++
	s.byID[p.ID] = p
	s.mu.Unlock()

	respondJSON(w, http.StatusCreated, p)
}

func (s *ProductsServer) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var p products.Product
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	s.calls[CallUpdate]++
	_, found := s.byID[id]
	if found {
		p.ID = id
		s.byID[id] = p
	}
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *ProductsServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	s.mu.Lock()
	s.calls[CallDelete]++
	_, found := s.byID[id]
	delete(s.byID, id)
	s.mu.Unlock()

	if !found {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	respondJSON(w, http.StatusOK, products.DeleteResult{Success: true, ID: id})
}

func (s *ProductsServer) handleClassify(w http.ResponseWriter, r *http.Request) {
	var req products.ClassifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid payload")
		return
	}

	s.mu.Lock()
	s.calls[CallClassify]++
	s.classified = append(s.classified, req.ProductIDs)
	remaining := s.needs[:0]
	for _, id := range s.needs {
		submitted := false
		for _, done := range req.ProductIDs {
			if id == done {
				submitted = true
				break
			}
		}
		if !submitted {
			remaining = append(remaining, id)
		}
	}
	s.needs = remaining
	s.mu.Unlock()

	respondJSON(w, http.StatusOK, map[string]any{"accepted": len(req.ProductIDs)})
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	return id, true
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
