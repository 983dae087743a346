package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/engram-lab/engram/pkg/domain/model"
	"github.com/engram-lab/engram/pkg/domain/types"
	"github.com/engram-lab/engram/pkg/usecase"
	"github.com/engram-lab/engram/pkg/utils/errutil"
	"github.com/go-chi/chi/v5"
	"github.com/m-mizutani/goerr/v2"
)

// statusFor maps engine error tags to HTTP status codes
func statusFor(err error) int {
	switch {
	case goerr.HasTag(err, types.ErrTagValidation):
		return http.StatusBadRequest
	case goerr.HasTag(err, types.ErrTagModelService):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body) //nolint:errcheck // header already committed
}

type memoryRecordResponse struct {
	Content    string         `json:"content"`
	Role       string         `json:"role"`
	Timestamp  time.Time      `json:"timestamp"`
	SessionID  string         `json:"session_id"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Similarity float64        `json:"similarity,omitempty"`
}

func toRecordResponse(rec model.MemoryRecord) memoryRecordResponse {
	return memoryRecordResponse{
		Content:    rec.Content,
		Role:       rec.Role.String(),
		Timestamp:  rec.Timestamp,
		SessionID:  rec.SessionID.String(),
		Metadata:   rec.Metadata,
		Similarity: rec.Similarity,
	}
}

func (s *Server) handleStoreMessage(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string          `json:"user_id"`
		SessionID string          `json:"session_id"`
		Role      string          `json:"role"`
		Content   string          `json:"content"`
		Metadata  json.RawMessage `json:"metadata,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	stored, err := s.uc.StoreMessage(r.Context(), &model.Message{
		UserID:    types.UserID(req.UserID),
		SessionID: types.SessionID(req.SessionID),
		Role:      types.Role(req.Role),
		Content:   req.Content,
		Metadata:  req.Metadata,
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":        stored.ID.String(),
		"timestamp": stored.CreatedAt,
	})
}

func (s *Server) handleExtractEntities(w http.ResponseWriter, r *http.Request) {
	messageID := model.MessageID(chi.URLParam(r, "messageID"))

	var req struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}
	if req.Content == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("content is required"), http.StatusBadRequest)
		return
	}

	names, err := s.uc.ExtractAndLink(r.Context(), messageID, req.Content)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}
	if names == nil {
		names = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]any{"entities": names})
}

func (s *Server) handleListEntities(w http.ResponseWriter, r *http.Request) {
	messageID := model.MessageID(chi.URLParam(r, "messageID"))

	entities, err := s.uc.ListEntities(r.Context(), messageID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	names := make([]string, len(entities))
	for i, e := range entities {
		names[i] = e.Name
	}
	writeJSON(w, http.StatusOK, map[string]any{"entities": names})
}

// retrieveOptions collects optional per-call tuning from query parameters
func retrieveOptions(r *http.Request) ([]usecase.RetrieveOption, error) {
	var opts []usecase.RetrieveOption

	if raw := r.URL.Query().Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 {
			return nil, goerr.New("limit must be a positive integer", goerr.V("limit", raw))
		}
		opts = append(opts, usecase.WithLimit(limit))
	}
	if raw := r.URL.Query().Get("days_back"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil || days < 1 {
			return nil, goerr.New("days_back must be a positive integer", goerr.V("days_back", raw))
		}
		opts = append(opts, usecase.WithDaysBack(days))
	}
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		threshold, err := strconv.ParseFloat(raw, 64)
		if err != nil || threshold <= -1 || threshold >= 1 {
			return nil, goerr.New("threshold must be within (-1, 1)", goerr.V("threshold", raw))
		}
		opts = append(opts, usecase.WithThreshold(threshold))
	}

	return opts, nil
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(r.URL.Query().Get("user_id"))
	query := r.URL.Query().Get("query")
	mode := types.RetrievalMode(r.URL.Query().Get("mode"))

	if mode != "" && !mode.IsValid() {
		errutil.HandleHTTP(r.Context(), w,
			goerr.New("invalid retrieval mode", goerr.V("mode", mode.String())),
			http.StatusBadRequest)
		return
	}

	opts, err := retrieveOptions(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	records, err := s.uc.Retrieve(r.Context(), userID, query, mode, opts...)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	resp := make([]memoryRecordResponse, len(records))
	for i, rec := range records {
		resp[i] = toRecordResponse(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": resp})
}

func (s *Server) handleFindSimilar(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(r.URL.Query().Get("user_id"))
	query := r.URL.Query().Get("query")

	opts, err := retrieveOptions(r)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, http.StatusBadRequest)
		return
	}

	matches, err := s.uc.FindSimilarConversations(r.Context(), userID, query, opts...)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	type matchResponse struct {
		Anchor     memoryRecordResponse   `json:"anchor"`
		Similarity float64                `json:"similarity"`
		Context    []memoryRecordResponse `json:"context"`
	}

	resp := make([]matchResponse, len(matches))
	for i, m := range matches {
		mr := matchResponse{
			Anchor:     toRecordResponse(m.Anchor),
			Similarity: m.Similarity,
			Context:    make([]memoryRecordResponse, len(m.Context)),
		}
		for j, rec := range m.Context {
			mr.Context[j] = toRecordResponse(rec)
		}
		resp[i] = mr
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": resp})
}

func (s *Server) handleFetchSession(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(r.URL.Query().Get("user_id"))
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	if userID == "" {
		errutil.HandleHTTP(r.Context(), w, goerr.New("user_id is required"), http.StatusBadRequest)
		return
	}

	msgs, err := s.uc.FetchSessionHistory(r.Context(), userID, sessionID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	type messageResponse struct {
		ID        string          `json:"id"`
		Role      string          `json:"role"`
		Content   string          `json:"content"`
		Metadata  json.RawMessage `json:"metadata,omitempty"`
		Timestamp time.Time       `json:"timestamp"`
	}

	resp := make([]messageResponse, len(msgs))
	for i, m := range msgs {
		resp[i] = messageResponse{
			ID:        m.ID.String(),
			Role:      m.Role.String(),
			Content:   m.Content,
			Metadata:  m.Metadata,
			Timestamp: m.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": resp})
}

func (s *Server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	userID := types.UserID(r.URL.Query().Get("user_id"))
	sessionID := types.SessionID(chi.URLParam(r, "sessionID"))

	summary, err := s.uc.SummarizeSession(r.Context(), userID, sessionID)
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"summary": summary})
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserID    string `json:"user_id"`
		SessionID string `json:"session_id,omitempty"`
		Message   string `json:"message"`
		Mode      string `json:"mode,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errutil.HandleHTTP(r.Context(), w, goerr.Wrap(err, "invalid request body"), http.StatusBadRequest)
		return
	}

	out, err := s.uc.Chat(r.Context(), &usecase.ChatInput{
		UserID:    types.UserID(req.UserID),
		SessionID: types.SessionID(req.SessionID),
		Message:   req.Message,
		Mode:      types.RetrievalMode(req.Mode),
	})
	if err != nil {
		errutil.HandleHTTP(r.Context(), w, err, statusFor(err))
		return
	}

	memories := make([]memoryRecordResponse, len(out.Memories))
	for i, rec := range out.Memories {
		memories[i] = toRecordResponse(rec)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": out.SessionID.String(),
		"reply":      out.Reply,
		"memories":   memories,
	})
}
