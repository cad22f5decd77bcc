package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/danielmv21/fitpulse/internal/auth"
	"github.com/danielmv21/fitpulse/internal/config"
	"github.com/danielmv21/fitpulse/internal/database"
	"github.com/danielmv21/fitpulse/internal/handlers"
	middlewareCustom "github.com/danielmv21/fitpulse/internal/middleware"
	"github.com/danielmv21/fitpulse/internal/repositories"
	"github.com/danielmv21/fitpulse/internal/routes"
	"github.com/danielmv21/fitpulse/internal/services"
	pkghttp "github.com/danielmv21/fitpulse/pkg/http"
	pkglogger "github.com/danielmv21/fitpulse/pkg/logger"
)

// CapturingEmailSender records welcome emails for test assertions
type CapturingEmailSender struct {
	mu   sync.Mutex
	Sent []string
}

func (m *CapturingEmailSender) SendWelcomeEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, email)
	return nil
}

// LastEmail returns the most recent recipient, or ""
func (m *CapturingEmailSender) LastEmail() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Sent) == 0 {
		return ""
	}
	return m.Sent[len(m.Sent)-1]
}

// TestServer wraps httptest.Server with the full production wiring against
// a real database and a captured email sender.
type TestServer struct {
	Server      *httptest.Server
	DB          *database.DB
	EmailSender *CapturingEmailSender
	Limiter     *services.RateLimitService
	Config      *config.Config
}

// NewTestServer initializes a complete HTTP server over the given database
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			AccessTokenSecret:  "test-access-secret-32-chars-long!!",
			RefreshTokenSecret: "test-refresh-secret-32-chars-long!",
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 7 * 24 * time.Hour,
		},
		RateLimit: config.RateLimitConfig{
			Login:          config.RateLimitPolicy{MaxAttempts: 5, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
			PasswordChange: config.RateLimitPolicy{MaxAttempts: 3, Window: 15 * time.Minute, BlockDuration: 30 * time.Minute},
			SweepInterval:  time.Hour,
			Retention:      time.Hour,
		},
		Server: config.ServerConfig{
			Port:           "0",
			Env:            "test",
			AllowedOrigins: []string{},
			TrustedProxies: []string{},
		},
	}

	accountRepo := repositories.NewAccountRepository(db)
	profileRepo := repositories.NewProfileRepository(db)

	tokenManager := auth.NewTokenManager(
		cfg.Auth.AccessTokenSecret,
		cfg.Auth.RefreshTokenSecret,
		cfg.Auth.AccessTokenExpiry,
		cfg.Auth.RefreshTokenExpiry,
	)

	auditLogger := pkglogger.NewAuditLogger(logger)
	rateLimitService := services.NewRateLimitService(services.NewMemoryAttemptStore(), logger)
	emailSender := &CapturingEmailSender{}

	authService := services.NewAuthService(accountRepo, profileRepo, tokenManager, emailSender, logger, auditLogger)

	ipConfig := &pkghttp.IPConfig{TrustedProxies: cfg.Server.TrustedProxies}
	authHandler := handlers.NewAuthHandler(authService, rateLimitService, cfg.RateLimit, ipConfig)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, tokenManager, rateLimitService, ipConfig)

	return &TestServer{
		Server:      httptest.NewServer(r),
		DB:          db,
		EmailSender: emailSender,
		Limiter:     rateLimitService,
		Config:      cfg,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with an access token
func (ts *TestServer) RequestWithAuth(method, path, accessToken string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + accessToken,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses a JSON response body into the target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractTokensFromResponse extracts the token pair from an auth response
func ExtractTokensFromResponse(resp *http.Response) (accessToken, refreshToken, accountID string, err error) {
	defer resp.Body.Close()

	var authResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&authResp); err != nil {
		return "", "", "", err
	}

	if access, ok := authResp["access_token"].(string); ok {
		accessToken = access
	}
	if refresh, ok := authResp["refresh_token"].(string); ok {
		refreshToken = refresh
	}
	if id, ok := authResp["account_id"].(string); ok {
		accountID = id
	}
	return
}
