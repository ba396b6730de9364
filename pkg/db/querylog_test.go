package db

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/thriftlane-backend/pkg/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func openWithQueryLog(t *testing.T, slow time.Duration) (*gorm.DB, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Output: &buf})
	conn, err := gorm.Open(sqlite.Open("file:querylog_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: newQueryLogger(logg, slow),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&testModel{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	buf.Reset()
	return conn, &buf
}

func TestQueryLoggerReportsSlowStatements(t *testing.T) {
	conn, buf := openWithQueryLog(t, time.Nanosecond)
	if err := conn.Create(&testModel{Name: "slow"}).Error; err != nil {
		t.Fatalf("create: %v", err)
	}
	if !strings.Contains(buf.String(), "db.slow_query") {
		t.Fatalf("expected slow query log, got %q", buf.String())
	}
}

func TestQueryLoggerReportsFailuresButNotMisses(t *testing.T) {
	conn, buf := openWithQueryLog(t, time.Hour)

	var missing testModel
	_ = conn.First(&missing, "name = ?", "nobody").Error
	if buf.Len() != 0 {
		t.Fatalf("record-not-found should stay quiet, got %q", buf.String())
	}

	_ = conn.Exec("SELECT * FROM no_such_table").Error
	out := buf.String()
	if !strings.Contains(out, "db.query_failed") || !strings.Contains(out, "no_such_table") {
		t.Fatalf("expected failed statement log, got %q", out)
	}
}

func TestQueryLoggerSilentMode(t *testing.T) {
	conn, buf := openWithQueryLog(t, time.Nanosecond)
	quiet := conn.Session(&gorm.Session{Logger: conn.Logger.LogMode(gormlogger.Silent)})
	_ = quiet.Exec("SELECT * FROM no_such_table").Error
	if buf.Len() != 0 {
		t.Fatalf("silent mode should not log, got %q", buf.String())
	}
}
