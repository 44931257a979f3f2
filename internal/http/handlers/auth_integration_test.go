package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/joho/godotenv"

	"github.com/hongminglow/portfolio-be/internal/auth"
	"github.com/hongminglow/portfolio-be/internal/logging"
	"github.com/hongminglow/portfolio-be/internal/middleware"
	"github.com/hongminglow/portfolio-be/internal/models"
	"github.com/hongminglow/portfolio-be/internal/models/dto"
	"github.com/hongminglow/portfolio-be/internal/portfolio"
	"github.com/hongminglow/portfolio-be/internal/storage/postgres"
)

// TestAuthIntegration registers, logs in and creates a portfolio against a live Postgres.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	dbURL := mustGetEnv(t, "DATABASE_URL")

	ctx := context.Background()
	store, err := postgres.NewStore(ctx, dbURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	tokens := auth.NewTokenManager(mustGetEnv(t, "JWT_SECRET"), mustGetEnv(t, "JWT_ISSUER"), mustGetTTL(t))
	log := logging.Discard()

	mux := http.NewServeMux()
	NewAuthHandler(store, tokens, log).Register(mux)
	api := http.NewServeMux()
	NewUserHandler(store, log).Register(api)
	NewPortfolioHandler(portfolio.NewRepository(store, nil, log), log).Register(api)
	mux.Handle("/api/", middleware.RequireAuth(tokens, api))

	ts := httptest.NewServer(mux)
	defer ts.Close()

	username := fmt.Sprintf("apitest_%d", time.Now().UnixNano())
	email := fmt.Sprintf("%s@example.com", username)
	password := fmt.Sprintf("Pass!%d", time.Now().UnixNano())

	registered := post[dto.LoginResponse](t, ts.URL+"/auth/register", "", map[string]string{
		"username":        username,
		"email":           email,
		"password":        password,
		"confirmPassword": password,
	})
	if registered.User.Username != username || registered.User.Email != email {
		t.Fatalf("register mismatch: got %+v", registered.User)
	}
	defer deleteUser(t, ts.URL, registered)

	loggedIn := post[dto.LoginResponse](t, ts.URL+"/auth/login", "", map[string]string{
		"identifier": username,
		"password":   password,
	})
	if loggedIn.User.ID != registered.User.ID {
		t.Fatalf("login returned wrong user id: want %s got %s", registered.User.ID, loggedIn.User.ID)
	}
	if strings.TrimSpace(loggedIn.Token) == "" {
		t.Fatal("login response missing token")
	}

	p := post[models.Portfolio](t, ts.URL+"/api/portfolios", loggedIn.Token, map[string]string{"name": "Integration"})
	if p.OwnerID != registered.User.ID {
		t.Fatalf("portfolio owner = %s, want %s", p.OwnerID, registered.User.ID)
	}
	p = post[models.Portfolio](t, ts.URL+"/api/portfolios/"+p.ID+"/holdings", loggedIn.Token, map[string]any{"ticker": "msft", "qty": 3})
	if len(p.Holdings) != 1 || p.Holdings[0].Ticker != "MSFT" {
		t.Fatalf("unexpected holdings: %+v", p.Holdings)
	}

	req, _ := http.NewRequest(http.MethodDelete, ts.URL+"/api/portfolios/"+p.ID, nil)
	req.Header.Set("Authorization", "Bearer "+loggedIn.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete portfolio: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete portfolio status = %d", resp.StatusCode)
	}

	t.Logf("created user %s (id=%s), logged in and round-tripped a portfolio", username, registered.User.ID)
}

func post[T any](t *testing.T, url, token string, payload any) T {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	var out envelope[T]
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("POST %s status = %d: %s", url, resp.StatusCode, out.Message)
	}
	return out.Data
}

func deleteUser(t *testing.T, baseURL string, session dto.LoginResponse) {
	t.Helper()
	req, err := http.NewRequest(http.MethodDelete, baseURL+"/api/users/"+session.User.ID, nil)
	if err != nil {
		t.Fatalf("build delete request: %v", err)
	}
	req.Header.Set("Authorization", "Bearer "+session.Token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("delete user: %v", err)
	}
	resp.Body.Close()
}

func mustGetEnv(t *testing.T, key string) string {
	t.Helper()
	val := strings.TrimSpace(os.Getenv(key))
	if val == "" {
		t.Fatalf("%s is required", key)
	}
	return val
}

func mustGetTTL(t *testing.T) time.Duration {
	t.Helper()
	minutesStr := mustGetEnv(t, "JWT_TTL_MINUTES")
	minutes, err := strconv.Atoi(minutesStr)
	if err != nil || minutes <= 0 {
		t.Fatalf("invalid JWT_TTL_MINUTES value: %q", minutesStr)
	}
	return time.Duration(minutes) * time.Minute
}

func loadDotEnv() {
	for _, path := range []string{".env", "../.env", "../../.env", "../../../.env"} {
		_ = godotenv.Overload(path)
	}
}
