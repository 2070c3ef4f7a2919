// Package sandbox serves an in-process stand-in for the SACCO loan API. It
// backs local development (`loan-calculator sandbox`) and the tests of the
// packages that consume the real API.
package sandbox

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

type Server struct {
	products  []Product
	log       *zap.Logger
	calcCount atomic.Int64
}

func NewServer(products []Product, log *zap.Logger) *Server {
	if products == nil {
		products = DefaultProducts()
	}
	return &Server{products: products, log: log}
}

// CalcCount is the number of /loan/calc requests received so far.
func (s *Server) CalcCount() int64 {
	return s.calcCount.Load()
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /loan/products", s.listProducts)
	mux.HandleFunc("POST /loan/calc", s.calculate)
	return mux
}

type calcRequest struct {
	ProductKey string  `json:"product_key"`
	Principal  float64 `json:"principal"`
	StartDate  string  `json:"start_date"`
	TermMonths int     `json:"term_months"`
}

func (s *Server) listProducts(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"items": s.products})
}

func (s *Server) calculate(w http.ResponseWriter, r *http.Request) {
	s.calcCount.Add(1)

	var req calcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid request body"})
		return
	}

	product, ok := s.find(req.ProductKey)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "unknown product"})
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid start_date"})
		return
	}

	resp, err := Amortize(product, req.Principal, start, req.TermMonths)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
		return
	}

	s.log.Debug("sandbox calculation",
		zap.String("product_key", product.ProductKey),
		zap.String("rate", ratePct(product)),
		zap.Float64("principal", req.Principal),
		zap.Int("term_months", req.TermMonths))
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) find(key string) (Product, bool) {
	for _, p := range s.products {
		if p.ProductKey == key {
			return p, true
		}
	}
	return Product{}, false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
