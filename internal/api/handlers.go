package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/recommend"
	"github.com/maltedev/shopping-recommender/internal/session"
)

const AppName = "Shopping Recommender"

// Recommender produces recommendations for one shopping request.
type Recommender interface {
	GetRecommendations(ctx context.Context, profile *models.UserProfile, input models.ShoppingInput) (*models.RecommendationResult, error)
}

type Handlers struct {
	sessions    session.Store
	recommender Recommender
	logger      *slog.Logger
}

func NewHandlers(sessions session.Store, recommender Recommender, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{
		sessions:    sessions,
		recommender: recommender,
		logger:      logger.With("component", "api"),
	}
}

// flexString accepts a JSON string or number.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*f = flexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexString(n.String())
	return nil
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

type sessionResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

// UserInfoRequest is the profile form submitted by the front end.
type UserInfoRequest struct {
	SessionID  string     `json:"session_id"`
	Age        flexString `json:"age"`
	Gender     string     `json:"gender"`
	Categories []string   `json:"categories"`
	Interests  string     `json:"interests"`
	Location   string     `json:"location"`
	BudgetMin  flexString `json:"budgetMin"`
	BudgetMax  flexString `json:"budgetMax"`
}

func (r UserInfoRequest) profile() models.UserProfile {
	p := models.UserProfile{
		Age:                     string(r.Age),
		Gender:                  r.Gender,
		FavoriteCategories:      r.Categories,
		Interests:               r.Interests,
		PreferredShoppingMethod: "online",
		Location:                r.Location,
	}
	if r.BudgetMin != "" && r.BudgetMax != "" {
		p.BudgetRange = string(r.BudgetMin) + "-" + string(r.BudgetMax)
	}
	return p
}

type RecommendationRequest struct {
	SessionID     string               `json:"session_id"`
	ShoppingInput models.ShoppingInput `json:"shopping_input"`
}

type recommendationResponse struct {
	Status string `json:"status"`
	models.RecommendationResult
}

type exportResponse struct {
	Status string             `json:"status"`
	Data   models.UserProfile `json:"data"`
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, map[string]string{
		"status":   "healthy",
		"message":  AppName + " backend API is running",
		"app_name": AppName,
	})
}

// InitSession starts an empty session under the client-chosen id.
func (h *Handlers) InitSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SessionID == "" {
		h.respondError(w, http.StatusBadRequest, "Session ID is required")
		return
	}

	if err := h.sessions.Put(r.Context(), session.New(req.SessionID)); err != nil {
		h.logger.Error("failed to init session", "error", err, "session_id", req.SessionID)
		h.respondError(w, http.StatusInternalServerError, "failed to initialize session")
		return
	}

	h.logger.Info("session initialized", "session_id", req.SessionID)
	h.respondJSON(w, http.StatusOK, sessionResponse{
		Status:    "success",
		Message:   "Session initialized successfully",
		SessionID: req.SessionID,
	})
}

// StoreUserInfo saves the profile form. Unknown or missing session ids get
// a fresh session.
func (h *Handlers) StoreUserInfo(w http.ResponseWriter, r *http.Request) {
	var req UserInfoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	id := r.Header.Get("X-Session-Id")
	if id == "" {
		id = req.SessionID
	}

	sess, err := h.lookup(ctx, id)
	if errors.Is(err, session.ErrNotFound) {
		sess = session.New(uuid.NewString())
		h.logger.Info("created session for user info", "session_id", sess.ID, "requested", id)
	} else if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	sess.Profile = req.profile()
	if err := h.sessions.Put(ctx, sess); err != nil {
		h.logger.Error("failed to store user info", "error", err, "session_id", sess.ID)
		h.respondError(w, http.StatusInternalServerError, "failed to store user information")
		return
	}

	h.logger.Info("user info stored",
		"session_id", sess.ID,
		"location", sess.Profile.Location,
		"categories", len(sess.Profile.FavoriteCategories),
		"budget_range", sess.Profile.BudgetRange,
	)
	h.respondJSON(w, http.StatusOK, sessionResponse{
		Status:    "success",
		Message:   "User information stored successfully",
		SessionID: sess.ID,
	})
}

func (h *Handlers) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	var req RecommendationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()
	sess, err := h.lookup(ctx, req.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		h.respondError(w, http.StatusBadRequest, "Invalid session")
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", req.SessionID)
		h.respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	if sess.Profile.IsEmpty() {
		h.respondError(w, http.StatusBadRequest, "No user data found. Please complete your profile first.")
		return
	}

	result, err := h.recommender.GetRecommendations(ctx, &sess.Profile, req.ShoppingInput)
	switch {
	case errors.Is(err, recommend.ErrNoCategories):
		h.logger.Error("category lookup failed", "error", err, "session_id", sess.ID)
		h.respondError(w, http.StatusInternalServerError, "Failed to get product categories")
		return
	case errors.Is(err, recommend.ErrIncompleteProfile):
		h.respondError(w, http.StatusBadRequest, "No user data found. Please complete your profile first.")
		return
	case err != nil:
		h.logger.Error("recommendation failed", "error", err, "session_id", sess.ID)
		h.respondError(w, http.StatusInternalServerError, "failed to get recommendations")
		return
	}

	sess.Results = result
	if err := h.sessions.Put(ctx, sess); err != nil {
		h.logger.Warn("failed to store results", "error", err, "session_id", sess.ID)
	}

	h.respondJSON(w, http.StatusOK, recommendationResponse{
		Status:               "success",
		RecommendationResult: *result,
	})
}

func (h *Handlers) ExportUserData(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")

	sess, err := h.lookup(r.Context(), id)
	if errors.Is(err, session.ErrNotFound) {
		h.respondError(w, http.StatusBadRequest, "Invalid session")
		return
	}
	if err != nil {
		h.logger.Error("failed to load session", "error", err, "session_id", id)
		h.respondError(w, http.StatusInternalServerError, "failed to load session")
		return
	}

	h.respondJSON(w, http.StatusOK, exportResponse{Status: "success", Data: sess.Profile})
}

func (h *Handlers) CleanupSession(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if req.SessionID == "" {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return
	}

	err := h.sessions.Delete(r.Context(), req.SessionID)
	if errors.Is(err, session.ErrNotFound) {
		h.respondError(w, http.StatusNotFound, "Session not found")
		return
	}
	if err != nil {
		h.logger.Error("failed to delete session", "error", err, "session_id", req.SessionID)
		h.respondError(w, http.StatusInternalServerError, "failed to clean up session")
		return
	}

	h.logger.Info("session cleaned up", "session_id", req.SessionID)
	h.respondJSON(w, http.StatusOK, sessionResponse{
		Status:  "success",
		Message: "Session cleaned up successfully",
	})
}

func (h *Handlers) lookup(ctx context.Context, id string) (*session.Session, error) {
	if id == "" {
		return nil, session.ErrNotFound
	}
	return h.sessions.Get(ctx, id)
}

// Helper methods
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"status": "error", "message": message})
}
