// Package testutil はハンドラーとリポジトリのテストで共有するヘルパーです。
package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"

	"go-supa-todo/backend/internal/config"
	"go-supa-todo/backend/internal/logger"
	"go-supa-todo/backend/internal/models"
	"go-supa-todo/backend/internal/repositories"
	"go-supa-todo/backend/internal/routes"
	"go-supa-todo/backend/internal/services"
)

// TestJWTSecret はテスト用トークンの署名鍵です。
const TestJWTSecret = "test-jwt-secret-with-enough-length"

// TestTable は DB を使うテストが作成するテーブル名です。
const TestTable = "tasks_test"

// TestEnv はテスト用ルーターとその依存関係です。
// Backend はインメモリバックエンドで起動した場合だけ設定されます。
type TestEnv struct {
	Router   *gin.Engine
	Backend  *repositories.MemoryBackend
	Verifier *services.JWTVerifier
	Config   *config.Config
}

// SetupTestRouter はインメモリバックエンドの上にテスト用のGinルーターをセットアップします。
// configure で Config を上書きできます。
func SetupTestRouter(t *testing.T, configure ...func(*config.Config)) *TestEnv {
	t.Helper()
	backend := repositories.NewMemoryBackend()
	env := SetupTestRouterWithBackend(t, backend, configure...)
	env.Backend = backend
	return env
}

// SetupTestRouterWithBackend は任意のバックエンドでテスト用のGinルーターをセットアップします。
func SetupTestRouterWithBackend(t *testing.T, backend repositories.Backend, configure ...func(*config.Config)) *TestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		DBDriver:    config.DriverMemory,
		Table:       "tasks",
		JWTSecret:   TestJWTSecret,
		AuthMode:    config.AuthRequired,
		CORSOrigins: []string{"http://localhost:3000"},
	}
	for _, fn := range configure {
		fn(cfg)
	}

	verifier, err := services.NewJWTVerifier(cfg.JWTSecret)
	require.NoError(t, err)

	log := logger.Discard()
	deps := routes.Deps{
		Config:   cfg,
		Todos:    services.NewTodoService(backend, cfg.Table, log),
		Verifier: verifier,
		Log:      log,
	}
	if cfg.AuthMode == config.AuthOff {
		deps.Verifier = nil
	}

	return &TestEnv{
		Router:   routes.SetupRouter(deps),
		Verifier: verifier,
		Config:   cfg,
	}
}

// MintToken はテストユーザーのアクセストークンを発行します。
func (e *TestEnv) MintToken(t *testing.T, user models.AuthUser) string {
	t.Helper()
	token, err := e.Verifier.GenerateToken(user, time.Hour)
	require.NoError(t, err)
	return token
}

// Do はルーターにリクエストを送り、レスポンスを返します。body が nil ならボディ無しで送ります。
func (e *TestEnv) Do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			r = bytes.NewBufferString(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			r = bytes.NewBuffer(raw)
		}
	}

	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp := httptest.NewRecorder()
	e.Router.ServeHTTP(resp, req)
	return resp
}

// Envelope は {success, count, data, error} 形式のレスポンスです。
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Count   int    `json:"count"`
	Data    T      `json:"data"`
	Error   string `json:"error"`
	Details string `json:"details"`
	Message string `json:"message"`
}

// Decode はレスポンスボディを Envelope として読み込みます。
func Decode[T any](t *testing.T, resp *httptest.ResponseRecorder) Envelope[T] {
	t.Helper()
	var env Envelope[T]
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &env), resp.Body.String())
	return env
}

// CreateTestTodo はテスト用のTODOを API 経由で作成します。
func (e *TestEnv) CreateTestTodo(t *testing.T, token, title string, completed bool) models.Todo {
	t.Helper()
	resp := e.Do(t, http.MethodPost, "/api/todos", token, map[string]any{
		"title":  title,
		"status": completed,
	})
	require.Equal(t, http.StatusCreated, resp.Code, "TODO作成に失敗しました: %s", resp.Body.String())
	return Decode[models.Todo](t, resp).Data
}

// SetupTestPostgres は TEST_DATABASE_URL の Postgres にテスト用テーブルと RLS ポリシーを作成します。
// 未設定ならテストをスキップします。
func SetupTestPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL is not set; skipping postgres integration test")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, url)
	require.NoError(t, err)
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		t.Skipf("postgres is not reachable: %v", err)
	}

	stmts := []string{
		`DO $$ BEGIN
			IF NOT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = 'authenticated') THEN
				CREATE ROLE authenticated NOLOGIN;
			END IF;
		END $$`,
		`GRANT authenticated TO CURRENT_USER`,
		fmt.Sprintf(`DROP TABLE IF EXISTS %s`, TestTable),
		fmt.Sprintf(`CREATE TABLE %s (
			id uuid PRIMARY KEY DEFAULT gen_random_uuid(),
			title text NOT NULL CHECK (title <> ''),
			description text DEFAULT '',
			category_id uuid,
			due_date timestamptz,
			priority text DEFAULT 'medium',
			status boolean DEFAULT false,
			user_id uuid,
			created_at timestamptz NOT NULL DEFAULT now(),
			updated_at timestamptz
		)`, TestTable),
		fmt.Sprintf(`GRANT ALL ON %s TO authenticated`, TestTable),
		fmt.Sprintf(`ALTER TABLE %s ENABLE ROW LEVEL SECURITY`, TestTable),
		fmt.Sprintf(`CREATE POLICY owner_only ON %s
			USING (user_id = (current_setting('request.jwt.claims', true)::json->>'sub')::uuid)
			WITH CHECK (user_id = (current_setting('request.jwt.claims', true)::json->>'sub')::uuid)`, TestTable),
	}
	for _, stmt := range stmts {
		_, err := pool.Exec(ctx, stmt)
		require.NoError(t, err, stmt)
	}

	t.Cleanup(func() {
		_, _ = pool.Exec(context.Background(), fmt.Sprintf(`DROP TABLE IF EXISTS %s`, TestTable))
		pool.Close()
	})
	return pool
}

// SetupTestMySQL は TEST_DB_* の MySQL にテスト用テーブルを作成します。未設定ならスキップします。
func SetupTestMySQL(t *testing.T) *sql.DB {
	t.Helper()
	_ = godotenv.Load("../../.env")

	cfg := config.MySQLConfig{
		User: os.Getenv("TEST_DB_USER"),
		Pass: os.Getenv("TEST_DB_PASS"),
		Host: os.Getenv("TEST_DB_HOST"),
		Port: os.Getenv("TEST_DB_PORT"),
		Name: os.Getenv("TEST_DB_NAME"),
	}
	if cfg.User == "" || cfg.Host == "" || cfg.Name == "" {
		t.Skip("TEST_DB_* is not set; skipping mysql integration test")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	require.NoError(t, err)
	if err := db.Ping(); err != nil {
		db.Close()
		t.Skipf("mysql is not reachable: %v", err)
	}

	stmts := []string{
		fmt.Sprintf("DROP TABLE IF EXISTS `%s`", TestTable),
		"CREATE TABLE `" + TestTable + "` (" + `
			id CHAR(36) PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			description TEXT,
			category_id CHAR(36),
			due_date DATETIME,
			priority VARCHAR(20) DEFAULT 'medium',
			status BOOLEAN NOT NULL DEFAULT FALSE,
			user_id CHAR(36),
			created_at DATETIME(6) NOT NULL,
			updated_at DATETIME(6),
			CHECK (title <> '')
		)`,
	}
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, stmt)
	}

	t.Cleanup(func() {
		_, _ = db.Exec(fmt.Sprintf("DROP TABLE IF EXISTS `%s`", TestTable))
		db.Close()
	})
	return db
}

// DecodeInto はレスポンスボディを任意の値に読み込みます。
func DecodeInto(t *testing.T, resp *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), v), resp.Body.String())
}
