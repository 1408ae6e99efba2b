// Package api exposes the HTTP surface: document upload, chat, and
// vector deletion.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ragchat/config"
	"ragchat/ingestion"
	"ragchat/llm"
)

// Ingestor runs the ingestion pipeline for one uploaded document.
type Ingestor interface {
	Ingest(ctx context.Context, fileName string, data []byte) (ingestion.Result, error)
}

// Answerer answers one question against the stored documents.
type Answerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// ChunkDeleter removes every stored vector with the given chunk index.
type ChunkDeleter interface {
	DeleteByChunkIndex(ctx context.Context, chunkIndex int) error
}

type Server struct {
	cfg      config.Config
	logger   zerolog.Logger
	ingestor Ingestor
	answerer Answerer
	deleter  ChunkDeleter
	handler  http.Handler
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type chatRequest struct {
	Messages []llm.Message `json:"messages"`
}

type chatResponse struct {
	Response string `json:"response"`
}

type uploadResponse struct {
	Success    bool   `json:"success"`
	Message    string `json:"message"`
	ParserUsed string `json:"parserUsed"`
	ChunkCount int    `json:"chunkCount"`
}

type extractionErrorResponse struct {
	Error      string `json:"error"`
	Parser     string `json:"parser"`
	TextSample string `json:"textSample"`
}

type deleteRequest struct {
	ChunkIndex any `json:"chunkIndex"`
}

type deleteResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func New(cfg config.Config, logger zerolog.Logger, ingestor Ingestor, answerer Answerer, deleter ChunkDeleter) *Server {
	s := &Server{
		cfg:      cfg,
		logger:   logger,
		ingestor: ingestor,
		answerer: answerer,
		deleter:  deleter,
	}
	s.handler = s.requestLogger(s.routes())
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/chat", s.handleChat)
	mux.HandleFunc("/upload", s.handleUpload)
	mux.HandleFunc("/delete-by-chunk-index", s.handleDelete)
	return mux
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := uuid.NewString()
		next.ServeHTTP(w, r)
		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("handled request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.methodNotAllowed(w, http.MethodGet)
		return
	}

	s.writeJSON(w, http.StatusOK, messageResponse{Message: "ok"})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	if len(req.Messages) == 0 {
		s.writeError(w, http.StatusBadRequest, errors.New("No messages provided"))
		return
	}

	question := strings.TrimSpace(req.Messages[len(req.Messages)-1].Content)
	if question == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("Empty question"))
		return
	}

	answer, err := s.answerer.Answer(r.Context(), question)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, chatResponse{Response: answer})
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.UploadTimeout)
	defer cancel()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, errors.New("No file uploaded"))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, fmt.Errorf("read upload: %w", err))
		return
	}

	result, err := s.ingestor.Ingest(ctx, header.Filename, data)
	if err != nil {
		var parseErr *ingestion.ParseError
		if errors.As(err, &parseErr) {
			s.logger.Warn().Err(parseErr).Str("file", header.Filename).Msg("upload rejected")
			s.writeJSON(w, http.StatusBadRequest, extractionErrorResponse{
				Error:      "Failed to extract sufficient text from document",
				Parser:     parseErr.Parser,
				TextSample: parseErr.Sample,
			})
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, uploadResponse{
		Success:    true,
		Message:    fmt.Sprintf("File %q uploaded successfully with %d chunks.", header.Filename, result.ChunkCount),
		ParserUsed: result.Parser,
		ChunkCount: result.ChunkCount,
	})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.methodNotAllowed(w, http.MethodPost)
		return
	}

	var req deleteRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}

	// JSON numbers decode as float64; anything else is a client error.
	idx, ok := req.ChunkIndex.(float64)
	if !ok {
		s.writeError(w, http.StatusBadRequest, errors.New("chunkIndex must be a number"))
		return
	}

	if err := s.deleter.DeleteByChunkIndex(r.Context(), int(idx)); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	s.writeJSON(w, http.StatusOK, deleteResponse{
		Success: true,
		Message: fmt.Sprintf("Deleted all vectors with chunkIndex=%d", int(idx)),
	})
}

func (s *Server) methodNotAllowed(w http.ResponseWriter, allowed string) {
	w.Header().Set("Allow", allowed)
	s.writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method not allowed, use %s", allowed))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	s.logger.Error().Int("status", status).Err(err).Msg("api error")
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	defer r.Body.Close()

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if err == io.EOF {
			return nil
		}
		return err
	}

	if dec.More() {
		return fmt.Errorf("request body must contain a single JSON object")
	}

	return nil
}
