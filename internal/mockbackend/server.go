// Package mockbackend serves the chat backend API from memory for local
// development and tests.
package mockbackend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"lawchat-terminal/internal/backend"
	"lawchat-terminal/internal/logging"
	"lawchat-terminal/internal/models"
)

// Responder produces the chunks streamed back for a question
type Responder func(content string) []string

// DefaultResponder answers every question with five "Chunk i " pieces
func DefaultResponder(content string) []string {
	chunks := make([]string, 5)
	for i := range chunks {
		chunks[i] = fmt.Sprintf("Chunk %d ", i)
	}
	return chunks
}

type talk struct {
	question string
	messages []backend.WireMessage
	records  []backend.Record
}

type Server struct {
	mu     sync.Mutex
	talks  map[string]*talk
	nextID int

	respond    Responder
	chunkDelay time.Duration
	log        zerolog.Logger
}

type Option func(*Server)

func WithResponder(r Responder) Option {
	return func(s *Server) { s.respond = r }
}

// WithChunkDelay sets the pause between streamed chunks
func WithChunkDelay(d time.Duration) Option {
	return func(s *Server) { s.chunkDelay = d }
}

func New(opts ...Option) *Server {
	s := &Server{
		talks:   map[string]*talk{},
		respond: DefaultResponder,
		log:     logging.WithComponent("mockbackend"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed stores a finished question and answer under id, creating the talk
func (s *Server) Seed(id, question, answer string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordLocked(id, question, answer, time.Now())
}

// Router returns the HTTP routes of the backend API
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/", s.handleRoot).Methods(http.MethodGet)
	r.HandleFunc("/chat/talks", s.handleTalks).Methods(http.MethodGet)
	// Must come before /chat/{id} which would also match it
	r.HandleFunc("/chat/new_talks", s.handleNewTalk).Methods(http.MethodPost)
	r.HandleFunc("/chat/{id}", s.handleSend).Methods(http.MethodPost)
	r.HandleFunc("/chat/{id}/records", s.handleRecords).Methods(http.MethodGet)
	return r
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, "Hello")
}

// handleTalks lists talks built from stored messages, so a talk only shows
// up once it has its first answer
func (s *Server) handleTalks(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	out := make(map[string]backend.Talk, len(s.talks))
	for id, t := range s.talks {
		if len(t.records) == 0 {
			continue
		}
		out[id] = backend.Talk{
			Ques:   t.question,
			Record: append([]backend.WireMessage(nil), t.messages...),
		}
	}
	s.mu.Unlock()

	writeJSON(w, out)
}

// The id goes out JSON encoded, so clients see it quoted
func (s *Server) handleNewTalk(w http.ResponseWriter, r *http.Request) {
	id := "talk_" + uuid.New().String()[:8]

	s.mu.Lock()
	s.talks[id] = &talk{}
	s.mu.Unlock()

	s.log.Info().Str("talk_id", id).Msg("created talk")
	writeJSON(w, id)
}

func (s *Server) handleRecords(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.mu.Lock()
	records := []backend.Record{}
	if t, ok := s.talks[id]; ok {
		records = append(records, t.records...)
	}
	s.mu.Unlock()

	writeJSON(w, records)
}

func (s *Server) handleSend(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	content := r.URL.Query().Get("content")
	if r.ContentLength != 0 {
		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusUnprocessableEntity)
			return
		}
		if req.Content != "" {
			content = req.Content
		}
	}
	if content == "" {
		http.Error(w, "content is required", http.StatusUnprocessableEntity)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	var answer string
	for i, chunk := range s.respond(content) {
		if i > 0 && !sleep(r.Context(), s.chunkDelay) {
			s.log.Debug().Str("talk_id", id).Msg("client went away mid stream")
			return
		}
		if _, err := w.Write([]byte(chunk)); err != nil {
			return
		}
		flusher.Flush()
		answer += chunk
	}

	s.mu.Lock()
	s.recordLocked(id, content, answer, time.Now())
	s.mu.Unlock()

	s.log.Info().Str("talk_id", id).Int("bytes", len(answer)).Msg("answered")
}

func (s *Server) recordLocked(id, question, answer string, at time.Time) {
	t, ok := s.talks[id]
	if !ok {
		t = &talk{}
		s.talks[id] = t
	}
	if t.question == "" {
		t.question = question
	}

	s.nextID++
	recordID := strconv.Itoa(s.nextID)
	t.records = append(t.records, backend.Record{
		ID:        backend.WireID(recordID),
		TalkID:    id,
		SessionID: uuid.New().String(),
		Ques:      question,
		Ans:       answer,
	})

	millis := at.UnixMilli()
	t.messages = append(t.messages,
		backend.WireMessage{
			Role: string(models.RoleUser), ID: backend.WireID(recordID + "-q"),
			CreateAt: millis, Content: question, Status: string(models.StatusComplete),
		},
		backend.WireMessage{
			Role: string(models.RoleAssistant), ID: backend.WireID(recordID + "-a"),
			CreateAt: millis, Content: answer, Status: string(models.StatusComplete),
		},
	)
}

// TalkIDs lists the known talks in lexical order
func (s *Server) TalkIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	ids := make([]string, 0, len(s.talks))
	for id := range s.talks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
