package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/WessleyAI/wessley-dtc/engine/diagnose"
	"github.com/WessleyAI/wessley-dtc/engine/dtc"
	"github.com/WessleyAI/wessley-dtc/engine/resolve"
	"github.com/WessleyAI/wessley-dtc/pkg/fn"
	"github.com/WessleyAI/wessley-dtc/pkg/vehiclenlp"
)

const maxBodyBytes = 64 << 10

type codeResolver interface {
	Resolve(ctx context.Context, rawCode, make_ string) (resolve.Outcome, error)
}

type diagnoser interface {
	Run(ctx context.Context, req diagnose.Request) (*diagnose.Diagnosis, error)
}

type server struct {
	resolver  codeResolver
	diagnoser diagnoser
	logger    *slog.Logger
}

func (s *server) routes(metricsHandler http.Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/health", handleHealth)
	mux.HandleFunc("POST /api/diagnose", s.handleDiagnose)
	mux.HandleFunc("GET /api/codes/{code}", s.handleLookup)
	mux.HandleFunc("POST /api/codes/extract", handleExtract)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
	return mux
}

// errorBody is the JSON shape of every failed response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
	Make  string `json:"make,omitempty"`
	Next  string `json:"next,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid request body"})
		return false
	}
	return true
}

// --- Handlers ---

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	var req diagnose.Request
	if !decodeBody(w, r, &req) {
		return
	}
	d, err := s.diagnoser.Run(r.Context(), req)
	if err != nil {
		var de *diagnose.Error
		if !errors.As(err, &de) {
			s.logger.Error("diagnosis failed", "err", err)
			writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal server error"})
			return
		}
		if de.Status >= http.StatusInternalServerError {
			s.logger.Error("diagnosis failed", "reason", de.Reason, "err", de)
		}
		writeJSON(w, de.Status, errorBody{Error: de.Message, Code: de.Code, Make: de.Make, Next: de.Next})
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func lookupStatus(o resolve.Outcome) int {
	switch o.(type) {
	case resolve.Found:
		return http.StatusOK
	case resolve.GenericNotFound, resolve.ManufacturerAbsent:
		return http.StatusNotFound
	default:
		return http.StatusBadRequest
	}
}

func (s *server) handleLookup(w http.ResponseWriter, r *http.Request) {
	code := r.PathValue("code")
	out, err := s.resolver.Resolve(r.Context(), code, r.URL.Query().Get("make"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "could not check the code right now"})
		return
	}
	writeJSON(w, lookupStatus(out), resolve.Describe(out))
}

// ExtractRequest is the JSON body for POST /api/codes/extract.
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists the codes found in the text. Found is false for
// category labels that are not verified titles.
type ExtractResponse struct {
	Codes   []dtc.Extracted     `json:"codes"`
	Vehicle *vehiclenlp.Mention `json:"vehicle,omitempty"`
}

func handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "text is required"})
		return
	}
	resp := ExtractResponse{Codes: fn.Map(dtc.ExtractCodes(req.Text), dtc.ClassifyExtracted)}
	if m, ok := vehiclenlp.Find(req.Text); ok {
		resp.Vehicle = &m
	}
	writeJSON(w, http.StatusOK, resp)
}
