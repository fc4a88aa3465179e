package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maltedev/shopping-recommender/internal/models"
	"github.com/maltedev/shopping-recommender/internal/recommend"
	"github.com/maltedev/shopping-recommender/internal/session"
)

type MockRecommender struct {
	mock.Mock
}

func (m *MockRecommender) GetRecommendations(ctx context.Context, profile *models.UserProfile, input models.ShoppingInput) (*models.RecommendationResult, error) {
	args := m.Called(ctx, profile, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.RecommendationResult), args.Error(1)
}

type testServer struct {
	handler     http.Handler
	store       *session.MemoryStore
	recommender *MockRecommender
}

func newTestServer() *testServer {
	store := session.NewMemoryStore(time.Hour)
	rec := new(MockRecommender)
	h := NewHandlers(store, rec, nil)
	return &testServer{
		handler:     NewRouter(h, RouterOptions{}),
		store:       store,
		recommender: rec,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var out map[string]any
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func (s *testServer) seedProfile(t *testing.T, id string, profile models.UserProfile) {
	t.Helper()
	sess := session.New(id)
	sess.Profile = profile
	require.NoError(t, s.store.Put(context.Background(), sess))
}

func TestHealth(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodGet, "/api/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, AppName, body["app_name"])
}

func TestInitSession(t *testing.T) {
	s := newTestServer()

	rec, body := s.do(t, http.MethodPost, "/api/init-session", map[string]string{"session_id": "abc"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, "abc", body["session_id"])

	ok, err := s.store.Exists(context.Background(), "abc")
	require.NoError(t, err)
	assert.True(t, ok)

	rec, body = s.do(t, http.MethodPost, "/api/init-session", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "Session ID is required", body["message"])
}

func TestStoreUserInfo(t *testing.T) {
	form := map[string]any{
		"age":        "34",
		"gender":     "female",
		"categories": []string{"Electronics", "Books"},
		"interests":  "hiking",
		"location":   "United Kingdom",
		"budgetMin":  20,
		"budgetMax":  "150",
	}

	t.Run("existing session from header", func(t *testing.T) {
		s := newTestServer()
		require.NoError(t, s.store.Put(context.Background(), session.New("abc")))

		rec, body := s.do(t, http.MethodPost, "/api/user-info", form, map[string]string{"X-Session-Id": "abc"})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "abc", body["session_id"])

		sess, err := s.store.Get(context.Background(), "abc")
		require.NoError(t, err)
		assert.Equal(t, "34", sess.Profile.Age)
		assert.Equal(t, "United Kingdom", sess.Profile.Location)
		assert.Equal(t, "20-150", sess.Profile.BudgetRange)
		assert.Equal(t, "online", sess.Profile.PreferredShoppingMethod)
		assert.Equal(t, []string{"Electronics", "Books"}, sess.Profile.FavoriteCategories)
	})

	t.Run("unknown session gets a new id", func(t *testing.T) {
		s := newTestServer()

		withID := map[string]any{"session_id": "ghost", "location": "Germany", "categories": []string{"Toys"}}
		rec, body := s.do(t, http.MethodPost, "/api/user-info", withID, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		id, _ := body["session_id"].(string)
		assert.NotEmpty(t, id)
		assert.NotEqual(t, "ghost", id)

		sess, err := s.store.Get(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "Germany", sess.Profile.Location)
		assert.Empty(t, sess.Profile.BudgetRange)
	})

	t.Run("malformed body", func(t *testing.T) {
		s := newTestServer()
		req := httptest.NewRequest(http.MethodPost, "/api/user-info", bytes.NewBufferString("{"))
		rec := httptest.NewRecorder()
		s.handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestGetRecommendations(t *testing.T) {
	profile := models.UserProfile{
		FavoriteCategories: []string{"Electronics"},
		Location:           "United Kingdom",
		BudgetRange:        "20-150",
	}
	input := models.ShoppingInput{Occasion: "birthday", ShoppingInput: "headphones"}

	t.Run("success stores results", func(t *testing.T) {
		s := newTestServer()
		s.seedProfile(t, "abc", profile)

		result := &models.RecommendationResult{
			Categories: []string{"headphones"},
			Products: []models.ReconciledProduct{{
				ID: "1", Name: "Studio Headphones", Price: 79.99, Currency: "£",
				Image: "https://img/1.jpg", BuyURL: "https://www.amazon.co.uk/dp/B000000001",
				Category: recommend.RecommendedCategory, Rating: 4.5, Reasoning: "Great sound.",
			}},
			RawRecommendations: "[]",
		}
		s.recommender.On("GetRecommendations", mock.Anything, &profile, input).Return(result, nil)

		rec, body := s.do(t, http.MethodPost, "/api/shopping-recommendations",
			map[string]any{"session_id": "abc", "shopping_input": input}, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		assert.Equal(t, "success", body["status"])
		assert.Equal(t, []any{"headphones"}, body["categories"])
		assert.Equal(t, "[]", body["ai_recommendations"])
		products, ok := body["products"].([]any)
		require.True(t, ok)
		require.Len(t, products, 1)
		first := products[0].(map[string]any)
		assert.Equal(t, "Studio Headphones", first["name"])
		assert.Equal(t, "https://www.amazon.co.uk/dp/B000000001", first["buyUrl"])

		sess, err := s.store.Get(context.Background(), "abc")
		require.NoError(t, err)
		require.NotNil(t, sess.Results)
		assert.Len(t, sess.Results.Products, 1)

		s.recommender.AssertExpectations(t)
	})

	t.Run("invalid session", func(t *testing.T) {
		s := newTestServer()
		rec, body := s.do(t, http.MethodPost, "/api/shopping-recommendations",
			map[string]any{"session_id": "missing"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid session", body["message"])
	})

	t.Run("empty profile", func(t *testing.T) {
		s := newTestServer()
		require.NoError(t, s.store.Put(context.Background(), session.New("abc")))

		rec, body := s.do(t, http.MethodPost, "/api/shopping-recommendations",
			map[string]any{"session_id": "abc"}, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, body["message"], "complete your profile")
		s.recommender.AssertNotCalled(t, "GetRecommendations", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("category failure", func(t *testing.T) {
		s := newTestServer()
		s.seedProfile(t, "abc", profile)
		s.recommender.On("GetRecommendations", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, errors.Join(recommend.ErrNoCategories, errors.New("quota")))

		rec, body := s.do(t, http.MethodPost, "/api/shopping-recommendations",
			map[string]any{"session_id": "abc", "shopping_input": input}, nil)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "error", body["status"])
	})
}

func TestExportUserData(t *testing.T) {
	s := newTestServer()
	s.seedProfile(t, "abc", models.UserProfile{Location: "Japan", FavoriteCategories: []string{"Games"}})

	rec, body := s.do(t, http.MethodGet, "/api/export-data/abc", nil, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Japan", data["user_location"])

	rec, _ = s.do(t, http.MethodGet, "/api/export-data/nope", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCleanupSession(t *testing.T) {
	s := newTestServer()
	require.NoError(t, s.store.Put(context.Background(), session.New("abc")))

	rec, body := s.do(t, http.MethodPost, "/api/cleanup-session", map[string]string{"session_id": "abc"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "success", body["status"])

	rec, body = s.do(t, http.MethodPost, "/api/cleanup-session", map[string]string{"session_id": "abc"}, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Session not found", body["message"])
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer()

	req := httptest.NewRequest(http.MethodOptions, "/api/user-info", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", "Content-Type, X-Session-Id")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
