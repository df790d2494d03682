package db

import (
	"bytes"
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"gallery-backend/internal/shared/telemetry"
)

// useMockDSN routes openDB to a sqlmock connection registered under dsn.
func useMockDSN(t *testing.T, dsn string, monitorPings bool) sqlmock.Sqlmock {
	t.Helper()
	mockDB, mock, err := sqlmock.NewWithDSN(dsn, sqlmock.MonitorPingsOption(monitorPings))
	if err != nil {
		t.Fatalf("sqlmock.NewWithDSN: %v", err)
	}
	prev := openDB
	openDB = func(_, dsn string) (*sql.DB, error) {
		return sql.Open("sqlmock", dsn)
	}
	t.Cleanup(func() {
		openDB = prev
		_ = mockDB.Close()
	})
	return mock
}


func TestConnectRejectsEmptyURL(t *testing.T) {
	if _, err := Connect(context.Background(), "  ", OptionsFor(ProfileServer)); err == nil {
		t.Fatalf("expected error for empty url")
	}
}

func TestConnectPingsAndAppliesPool(t *testing.T) {
	mock := useMockDSN(t, "connect-ok", true)
	mock.ExpectPing()

	db, err := Connect(context.Background(), "connect-ok", Options{MaxOpenConns: 3, MaxIdleConns: 1})
	if err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer db.Close()

	if got := db.Stats().MaxOpenConnections; got != 3 {
		t.Fatalf("expected MaxOpenConnections=3, got %d", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("ExpectationsWereMet: %v", err)
	}
}

func TestConnectPingFailure(t *testing.T) {
	mock := useMockDSN(t, "connect-ping-fail", true)
	mock.ExpectPing().WillReturnError(errors.New("connection refused"))

	_, err := Connect(context.Background(), "connect-ping-fail", OptionsFor(ProfileCLI))
	if err == nil || !strings.Contains(err.Error(), "ping database") {
		t.Fatalf("expected ping error, got %v", err)
	}
}

func TestOpenLambdaSharesPool(t *testing.T) {
	useMockDSN(t, "lambda-shared", false)
	lambdaPool.reset()
	t.Cleanup(lambdaPool.reset)

	db1, err := Open(context.Background(), "lambda-shared", ProfileLambda)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	db2, err := Open(context.Background(), "lambda-shared", ProfileLambda)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	if db1 != db2 {
		t.Fatalf("expected lambda pools to match")
	}
	if got := db1.Stats().MaxOpenConnections; got != 2 {
		t.Fatalf("expected lambda MaxOpenConnections=2, got %d", got)
	}
}

func TestOpenWorkerUsesOwnPool(t *testing.T) {
	useMockDSN(t, "worker-own", false)
	lambdaPool.reset()
	t.Cleanup(lambdaPool.reset)

	db1, err := Open(context.Background(), "worker-own", ProfileWorker)
	if err != nil {
		t.Fatalf("Open first: %v", err)
	}
	defer db1.Close()
	db2, err := Open(context.Background(), "worker-own", ProfileWorker)
	if err != nil {
		t.Fatalf("Open second: %v", err)
	}
	defer db2.Close()
	if db1 == db2 {
		t.Fatalf("expected separate pools outside lambda")
	}
	if got := db1.Stats().MaxOpenConnections; got != 4 {
		t.Fatalf("expected worker MaxOpenConnections=4, got %d", got)
	}
}

func TestOpenLambdaRetriesAfterFailure(t *testing.T) {
	useMockDSN(t, "lambda-retry", false)
	lambdaPool.reset()
	t.Cleanup(lambdaPool.reset)

	var calls int32
	mockOpen := openDB
	openDB = func(name, dsn string) (*sql.DB, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, driver.ErrBadConn
		}
		return mockOpen(name, dsn)
	}

	if _, err := Open(context.Background(), "lambda-retry", ProfileLambda); err == nil {
		t.Fatalf("expected first call to fail")
	}
	db, err := Open(context.Background(), "lambda-retry", ProfileLambda)
	if err != nil {
		t.Fatalf("expected second call to succeed: %v", err)
	}
	if db == nil {
		t.Fatalf("expected db after retry")
	}
}

func TestDetectProfile(t *testing.T) {
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "")
	if got := DetectProfile(ProfileWorker); got != ProfileWorker {
		t.Fatalf("expected fallback profile, got %q", got)
	}
	t.Setenv("AWS_LAMBDA_FUNCTION_NAME", "gallery-api")
	if got := DetectProfile(ProfileWorker); got != ProfileLambda {
		t.Fatalf("expected lambda profile, got %q", got)
	}
}

func TestOptionsForAppliesOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "7")
	t.Setenv("DB_MAX_IDLE_CONNS", "3")
	t.Setenv("DB_CONN_MAX_LIFETIME", "20m")
	t.Setenv("DB_CONN_MAX_IDLE_TIME", "45s")
	t.Setenv("DB_PING_TIMEOUT", "1s")

	opts := OptionsFor(ProfileServer)
	want := Options{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: 20 * time.Minute,
		ConnMaxIdleTime: 45 * time.Second,
		PingTimeout:     time.Second,
	}
	if opts != want {
		t.Fatalf("expected %+v, got %+v", want, opts)
	}
}

func TestOptionsForKeepsDefaultsOnInvalidValues(t *testing.T) {
	var buf bytes.Buffer
	restore := telemetry.SetOutput(&buf)
	defer restore()

	t.Setenv("DB_MAX_OPEN_CONNS", "many")
	t.Setenv("DB_PING_TIMEOUT", "soon")

	defaults := profileDefaults[ProfileLambda]
	if opts := OptionsFor(ProfileLambda); opts != defaults {
		t.Fatalf("expected defaults %+v, got %+v", defaults, opts)
	}
	if !strings.Contains(buf.String(), "db.env.invalid") {
		t.Fatalf("expected invalid env to be logged, got %q", buf.String())
	}
}

func TestOptionsForUnknownProfileUsesServerDefaults(t *testing.T) {
	if got := OptionsFor(Profile("batch")); got != profileDefaults[ProfileServer] {
		t.Fatalf("expected server defaults, got %+v", got)
	}
}
