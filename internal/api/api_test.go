package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"prism/internal/config"
	"prism/internal/directory"
	"prism/internal/ledger"
	"prism/internal/repository"
	"prism/internal/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	testSecret = "test-secret"
	aliceID    = "0b7c9a52-1111-4c1e-9d5e-6b3f1c2a0001"
	bobID      = "0b7c9a52-2222-4c1e-9d5e-6b3f1c2a0002"
	adminID    = "0b7c9a52-3333-4c1e-9d5e-6b3f1c2a0003"
	walletAddr = "0x52908400098527886E0F7030069857D2E4169EE7"
)

type fakeDirectory struct {
	mu       sync.Mutex
	accounts map[string]directory.Identity
}

func (d *fakeDirectory) AccountExists(_ context.Context, accountID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.accounts[accountID]
	return ok, nil
}

func (d *fakeDirectory) GetAccountIdentity(_ context.Context, accountID string) (directory.Identity, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	id, ok := d.accounts[accountID]
	if !ok {
		return directory.Identity{}, directory.ErrUnknownAccount
	}
	return id, nil
}

func (d *fakeDirectory) UpdateWalletAddress(_ context.Context, accountID, address string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	id := d.accounts[accountID]
	id.WalletAddress = address
	d.accounts[accountID] = id
	return nil
}

type testEnv struct {
	router *gin.Engine
	mock   sqlmock.Sqlmock
	store  *repository.MemoryStore
	dir    *fakeDirectory
	redis  *miniredis.Miniredis
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func newTestEnv(t *testing.T, configure ...func(*config.Config)) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })
	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		TranslateError:         true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	dir := &fakeDirectory{accounts: map[string]directory.Identity{
		aliceID: {DisplayName: "Alice Doe", Email: "alice@example.com"},
		bobID:   {DisplayName: "Bob Roe", Email: "bob@example.com"},
		adminID: {DisplayName: "Ada Admin", Email: "admin@example.com"},
	}}
	store := repository.NewMemoryStore()
	log, _ := logtest.NewNullLogger()
	svc := ledger.NewService(store, dir, ledger.Options{Logger: log, OpTimeout: time.Second})

	cfg := &config.Config{
		JWTSecret:     testSecret,
		JWTExpiry:     time.Hour,
		CacheTTL:      time.Minute,
		AirdropAmount: decimal.NewFromInt(100),
	}
	for _, fn := range configure {
		fn(cfg)
	}
	router := NewRouter(Server{Config: cfg, DB: db, Redis: rdb, Ledger: svc, Metrics: prometheus.NewRegistry()})
	return &testEnv{router: router, mock: mock, store: store, dir: dir, redis: mr}
}

// do sends body as JSON, authenticated as userID when it is not empty
func (e *testEnv) do(t *testing.T, method, path, userID string, body any) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := utils.GenerateJWT(userID, testSecret, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 && w.Header().Get("Content-Type") != "text/plain; charset=utf-8" {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

// expectAdmin makes the next role lookup report role for userID
func (e *testEnv) expectAdmin(userID, role string) {
	e.mock.ExpectQuery("SELECT `id`,`role` FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id", "role"}).AddRow(userID, role))
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}
