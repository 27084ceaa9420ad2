package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"friendus/internal/http/middleware"
)

func newTestRouter(logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Recovery(logger), middleware.Logging(logger))
	r.GET("/public", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c)})
	})
	api := r.Group("/api", middleware.Auth())
	api.GET("/me", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"uid": middleware.CallerUID(c)})
	})
	api.GET("/boom", func(c *gin.Context) {
		panic("boom")
	})
	return r
}

func get(r http.Handler, path, uid string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if uid != "" {
		req.Header.Set(middleware.UserIDHeader, uid)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestAuth_MissingHeader(t *testing.T) {
	r := newTestRouter(zap.NewNop())
	w := get(r, "/api/me", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestAuth_InvalidHeader(t *testing.T) {
	r := newTestRouter(zap.NewNop())
	for _, uid := range []string{"has space", "semi;colon", strings.Repeat("a", 129)} {
		if w := get(r, "/api/me", uid); w.Code != http.StatusUnauthorized {
			t.Errorf("uid %q: expected 401, got %d", uid, w.Code)
		}
	}
}

func TestAuth_ValidHeader_UIDPopulated(t *testing.T) {
	r := newTestRouter(zap.NewNop())
	w := get(r, "/api/me", "user-123@friendus")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "user-123@friendus") {
		t.Errorf("expected uid in body, got %s", w.Body.String())
	}
}

func TestCallerUID_EmptyOutsideAuth(t *testing.T) {
	r := newTestRouter(zap.NewNop())
	w := get(r, "/public", "someone")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "someone") {
		t.Errorf("public route must not trust the header, got %s", w.Body.String())
	}
}

func TestRecovery_PanicBecomes500(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	r := newTestRouter(zap.New(core))

	w := get(r, "/api/boom", "u1")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "internal error") {
		t.Errorf("unexpected body %s", w.Body.String())
	}
	if logs.FilterMessage("panic in handler").Len() != 1 {
		t.Errorf("expected panic to be logged")
	}
}

func TestLogging_LevelFollowsStatus(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := newTestRouter(zap.New(core))

	get(r, "/api/me", "u1")
	get(r, "/api/me", "")

	entries := logs.FilterMessage("request").All()
	if len(entries) != 2 {
		t.Fatalf("expected 2 request logs, got %d", len(entries))
	}
	if entries[0].Level != zapcore.InfoLevel || entries[1].Level != zapcore.WarnLevel {
		t.Errorf("levels = %v, %v", entries[0].Level, entries[1].Level)
	}
	fields := entries[0].ContextMap()
	if fields["route"] != "/api/me" || fields["user_id"] != "u1" {
		t.Errorf("unexpected fields %v", fields)
	}
}
