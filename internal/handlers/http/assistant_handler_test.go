package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"parley/internal/core/domain"
	"parley/internal/infrastructure/middleware"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

type MockAssistantService struct {
	mock.Mock
}

func (m *MockAssistantService) Ask(ctx context.Context, question string, history []domain.ChatMessage) (string, error) {
	args := m.Called(ctx, question, history)
	return args.String(0), args.Error(1)
}

func setupAssistantRouter(svc *MockAssistantService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.ErrorHandlerMiddleware(zap.NewNop().Sugar()))
	NewAssistantHandler(svc).SetupRoutes(router)
	return router
}

func TestAssistantChat(t *testing.T) {
	svc := new(MockAssistantService)
	svc.On("Ask", mock.Anything, "how do I unmute?", []domain.ChatMessage{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}).Return("Click the microphone icon.", nil)

	body := `{"question":"how do I unmute?","history":[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]}`
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	setupAssistantRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Click the microphone icon.")
	svc.AssertExpectations(t)
}

func TestAssistantChat_MissingQuestion(t *testing.T) {
	svc := new(MockAssistantService)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(`{"history":[]}`))
	req.Header.Set("Content-Type", "application/json")
	setupAssistantRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), `"INVALID_INPUT"`)
	svc.AssertNotCalled(t, "Ask")
}

func TestAssistantChat_UpstreamFailure(t *testing.T) {
	svc := new(MockAssistantService)
	svc.On("Ask", mock.Anything, "hello", mock.Anything).Return("", errors.New("assistant unavailable"))

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader(`{"question":"hello"}`))
	req.Header.Set("Content-Type", "application/json")
	setupAssistantRouter(svc).ServeHTTP(w, req)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"SERVICE_UNAVAILABLE"`)
}
