// Package apitest hosts an in-process storefront API double for integration
// tests: a chi-routed server that verifies bearer tokens and session
// correlation headers, backed by a token provider that mints real JWTs with
// a short lifetime so expiry and refresh paths can be exercised end to end.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"

	"trolley/internal/cart"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
)

// sessionHeader mirrors the pipeline's correlation header name. Declared
// separately on purpose: a rename on either side must break a test.
const sessionHeader = "X-Shopping-Session-Id"

// Server is the fake storefront API. It records the correlation ids it saw
// per path so tests can assert episode stability.
type Server struct {
	*httptest.Server

	signingKey []byte

	mu          sync.Mutex
	seenIDs     []string
	requestsFor map[string]int
}

// NewServer starts the fake API. Tokens are verified as HS256 JWTs signed
// with signingKey; anything else is a 401 with the API's error shape.
func NewServer(signingKey []byte) *Server {
	s := &Server{
		signingKey:  signingKey,
		requestsFor: make(map[string]int),
	}

	r := chi.NewRouter()
	r.Use(s.recordRequests)
	r.Use(s.requireBearer)

	r.Get("/api/coupons/eligible", s.handleCoupons)
	r.Post("/api/cart/items", s.handleCartMutation)
	r.Post("/api/orders", s.handleOrder)
	r.Get("/api/stt", s.handleEcho)

	s.Server = httptest.NewServer(r)
	return s
}

// SeenSessionIDs returns every correlation id observed, in request order.
func (s *Server) SeenSessionIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.seenIDs...)
}

// Requests returns how many calls reached path.
func (s *Server) Requests(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requestsFor[path]
}

func (s *Server) recordRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requestsFor[r.URL.Path]++
		if id := r.Header.Get(sessionHeader); id != "" {
			s.seenIDs = append(s.seenIDs, id)
		}
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			s.reject(w, "missing bearer token")
			return
		}
		token, err := jwt.Parse(raw, func(*jwt.Token) (any, error) {
			return s.signingKey, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			s.reject(w, "token rejected")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) reject(w http.ResponseWriter, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}

func (s *Server) handleCoupons(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(sessionHeader) == "" {
		s.reject(w, "missing session correlation")
		return
	}
	json.NewEncoder(w).Encode(map[string]any{
		"eligibleCoupons":   []cart.Coupon{{Code: "SAVE10", Discount: 10}},
		"ineligibleCoupons": []cart.Coupon{},
		"summary":           cart.Summary{Subtotal: 42.5, Discount: 10, Total: 32.5, ItemCount: 3},
	})
}

func (s *Server) handleCartMutation(w http.ResponseWriter, r *http.Request) {
	var line cart.Item
	if err := json.NewDecoder(r.Body).Decode(&line); err != nil || line.ProductID == "" {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"detail": "invalid cart line"})
		return
	}
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{"status": "added"})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(map[string]any{
		"order": cart.Order{ID: "ord-1", Status: "placed", Total: 32.5},
	})
}

func (s *Server) handleEcho(w http.ResponseWriter, r *http.Request) {
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
