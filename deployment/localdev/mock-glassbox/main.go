package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

var schemas = []string{"envelope", "keyed", "flat", "legacy"}

type analyzeRequest struct {
	Prompt   string `json:"prompt"`
	Output   string `json:"output"`
	Response string `json:"response"`
}

type record struct {
	ID        string
	Timestamp time.Time
	Prompt    string
	Output    string
}

type backend struct {
	schema  string
	persist bool

	mu      sync.Mutex
	records []record
	served  int
}

func main() {
	addr := flag.String("addr", ":8000", "listen address")
	schema := flag.String("schema", "keyed", "response schema: envelope, keyed, flat, legacy or rotate")
	persist := flag.Bool("persist", false, "serve stored analyses by id")
	flag.Parse()

	logger := log.New(log.Writer(), "glassbox-mock ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    *addr,
		Handler: logRequests(logger, newBackend(*schema, *persist).routes()),
	}

	logger.Printf("listening on %s (schema=%s persist=%t)", *addr, *schema, *persist)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func newBackend(schema string, persist bool) *backend {
	return &backend{schema: schema, persist: persist}
}

func (b *backend) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":             "healthy",
			"glassbox_connected": true,
			"database_connected": b.persist,
		})
	})
	mux.HandleFunc("/api/analyze", b.handleAnalyze)
	mux.HandleFunc("/analysis/", b.handleFetch)
	mux.HandleFunc("/history", b.handleHistory)
	return mux
}

func (b *backend) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, map[string]any{"detail": "method not allowed"})
		return
	}
	var req analyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"detail": "invalid JSON body"})
		return
	}
	output := req.Output
	if output == "" {
		output = req.Response
	}
	if strings.TrimSpace(req.Prompt) == "" || strings.TrimSpace(output) == "" {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"detail": "prompt and output are required"})
		return
	}

	b.mu.Lock()
	rec := record{
		ID:        fmt.Sprintf("req_%d_%d", time.Now().UnixMilli(), len(b.records)+1),
		Timestamp: time.Now().UTC(),
		Prompt:    req.Prompt,
		Output:    output,
	}
	b.records = append(b.records, rec)
	schema := b.schema
	if schema == "rotate" {
		schema = schemas[b.served%len(schemas)]
	}
	b.served++
	b.mu.Unlock()

	payload, ok := payloadFor(schema, rec)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "unknown schema " + schema})
		return
	}
	writeJSON(w, http.StatusOK, payload)
}

func (b *backend) handleFetch(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/analysis/")
	if !b.persist {
		writeJSON(w, http.StatusNotFound, map[string]any{"detail": "analysis results are not persisted"})
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, rec := range b.records {
		if rec.ID == id {
			payload, _ := payloadFor("envelope", rec)
			writeJSON(w, http.StatusOK, payload)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]any{"detail": "Analysis not found"})
}

func (b *backend) handleHistory(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if limit <= 0 {
		limit = 20
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	items := make([]map[string]any, 0, limit)
	for i := len(b.records) - 1 - offset; i >= 0 && len(items) < limit; i-- {
		rec := b.records[i]
		items = append(items, map[string]any{
			"request_id": rec.ID,
			"timestamp":  rec.Timestamp.Format(time.RFC3339),
			"prompt":     rec.Prompt,
			"response":   rec.Output,
			"risk_level": "medium",
			"confidence": 0.78,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items, "total": len(b.records)})
}

// payloadFor renders the same analysis in the requested wire schema.
func payloadFor(schema string, rec record) (map[string]any, bool) {
	switch schema {
	case "envelope":
		return map[string]any{
			"request_id":  rec.ID,
			"timestamp":   rec.Timestamp.Format(time.RFC3339),
			"prompt":      rec.Prompt,
			"response":    rec.Output,
			"summary":     map[string]any{"confidence": 0.78, "risk_level": "medium", "complexity": 0.45},
			"explanation": map[string]any{"short": "The answer is recalled from factual memory.", "detailed": "Early layers bind the subject; later heads copy the answer."},
			"heads": []map[string]any{
				{"layer": 1, "head": 5, "importance": 0.82, "label": "subject binder"},
				{"layer": 6, "head": 15, "importance": 0.64, "role": "answer mover"},
			},
			"edges":          []map[string]any{{"source": map[string]any{"layer": 1, "head": 5}, "target": map[string]any{"layer": 6, "head": 15}, "strength": "strong"}},
			"flow_summary":   "subject information flows into the answer head",
			"concerns":       []map[string]any{{"type": "warning", "message": "hallucination risk"}},
			"recommendation": "Verify the answer against a trusted source.",
			"metadata":       map[string]any{"analysis_time_ms": 120, "model_analyzed": "gpt2", "num_heads_analyzed": 144},
		}, true
	case "keyed":
		return map[string]any{
			"summary":     map[string]any{"confidence": 0.78, "risk_level": "medium", "complexity": 0.45},
			"explanation": map[string]any{"short": "The answer is recalled from factual memory.", "detailed": "Early layers bind the subject; later heads copy the answer."},
			"key_components": []map[string]any{
				{"id": "L1H5", "importance": 0.82, "label": "subject binder"},
				{"id": "L6H15", "importance": 0.64, "description": "answer mover"},
			},
			"information_flow": map[string]any{
				"summary": "subject information flows into the answer head",
				"edges":   []map[string]any{{"from": "L1H5", "to": "L6H15", "strength": "strong"}},
			},
			"risk_assessment": map[string]any{"level": "medium", "factors": []string{"moderate_hallucination_risk"}, "recommendation": "Verify the answer against a trusted source."},
			"metadata":        map[string]any{"analysis_time_ms": 120, "model_analyzed": "gpt2", "num_heads_analyzed": 144},
		}, true
	case "flat":
		return map[string]any{
			"confidence":         0.78,
			"risk_level":         "medium",
			"complexity":         0.45,
			"explanation":        "The answer is recalled from factual memory.",
			"explanation_detail": "Early layers bind the subject; later heads copy the answer.",
			"components": []map[string]any{
				{"id": "L1H5", "importance": 0.82, "label": "subject binder"},
				{"id": "L6H15", "importance": 0.64, "role": "answer mover"},
			},
			"connections":      []map[string]any{{"from": "L1H5", "to": "L6H15", "strength": "strong"}},
			"flow_summary":     "subject information flows into the answer head",
			"risk_factors":     []string{"moderate_hallucination_risk"},
			"recommendation":   "Verify the answer against a trusted source.",
			"analysis_time_ms": 120,
			"model":            "gpt2",
			"num_heads":        144,
		}, true
	case "legacy":
		return map[string]any{
			"confidence": 0.78,
			"risk":       "medium",
			"complexity": 0.45,
			"summary":    "The answer is recalled from factual memory.",
			"details":    "Early layers bind the subject; later heads copy the answer.",
			"heads": map[string]any{
				"L1H5":  map[string]any{"score": 0.82, "description": "subject binder"},
				"L6H15": map[string]any{"score": 0.64, "description": "answer mover"},
			},
			"flows":            []map[string]any{{"src": "L1H5", "dst": "L6H15", "strength": "strong"}},
			"flow_description": "subject information flows into the answer head",
			"warnings":         []string{"moderate_hallucination_risk"},
			"advice":           "Verify the answer against a trusted source.",
			"elapsed_ms":       120,
			"model_name":       "gpt2",
		}, true
	default:
		return nil, false
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
