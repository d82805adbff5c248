package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"collector/internal/db"
	"collector/internal/model"
	"collector/pkg/snowflake"

	_ "modernc.org/sqlite"
)

// snowflakeOnce 确保 snowflake 在所有并行测试中只初始化一次
var snowflakeOnce sync.Once

const timeLayout = "2006-01-02T15:04:05.000000Z"

// NewTestDB 创建内存 SQLite 数据库并执行所有迁移
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	snowflakeOnce.Do(func() {
		if err := snowflake.Init(0); err != nil {
			panic("failed to initialize snowflake: " + err.Error())
		}
	})

	// 每个测试使用唯一的数据库名称以避免冲突
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_pragma=foreign_keys(1)", name, time.Now().UnixNano())
	database, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}

	if err := db.Migrate(database); err != nil {
		database.Close()
		t.Fatalf("failed to migrate test database: %v", err)
	}

	t.Cleanup(func() {
		database.Close()
	})

	return database
}

func ts(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timeLayout)
}

// SeedSubmission 插入一条提交记录并返回其 ID
func SeedSubmission(t *testing.T, database *sql.DB, s model.Submission) int64 {
	t.Helper()

	if s.ID == 0 {
		s.ID = snowflake.NextID()
	}
	domain := ""
	if i := strings.LastIndex(s.Email, "@"); i >= 0 {
		domain = strings.ToLower(s.Email[i+1:])
	}

	_, err := database.ExecContext(
		context.Background(),
		`INSERT INTO emails (id, email, message, user_agent, ip_address, locale, domain, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Email, s.Message, s.UserAgent, s.IPAddress, s.Locale, domain, ts(s.CreatedAt),
	)
	if err != nil {
		t.Fatalf("failed to seed submission: %v", err)
	}
	return s.ID
}

// SeedUser 插入用户并返回其 ID
func SeedUser(t *testing.T, database *sql.DB, u model.User) int64 {
	t.Helper()

	if u.ID == 0 {
		u.ID = snowflake.NextID()
	}
	if u.Role == "" {
		u.Role = "user"
	}
	active := 0
	if u.IsActive {
		active = 1
	}
	var lastActivity interface{}
	if u.LastActivity != nil {
		lastActivity = ts(*u.LastActivity)
	}

	_, err := database.ExecContext(
		context.Background(),
		`INSERT INTO users (id, email, name, password_hash, role, is_active, created_at, updated_at, last_activity) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.Name, u.PasswordHash, u.Role, active, ts(u.CreatedAt), ts(u.CreatedAt), lastActivity,
	)
	if err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}
	return u.ID
}

// SeedEvent 插入分析事件
func SeedEvent(t *testing.T, database *sql.DB, e model.AnalyticsEvent) {
	t.Helper()

	_, err := database.ExecContext(
		context.Background(),
		`INSERT INTO analytics (id, action, session_id, user_agent, referrer, language, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		snowflake.NextID(), string(e.Action), e.SessionID, e.UserAgent, e.Referrer, e.Language, ts(e.CreatedAt),
	)
	if err != nil {
		t.Fatalf("failed to seed event: %v", err)
	}
}

// SeedSetting 插入测试配置数据
func SeedSetting(t *testing.T, database *sql.DB, key, value string) {
	t.Helper()

	_, err := database.ExecContext(
		context.Background(),
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)`,
		key, value, ts(time.Time{}),
	)
	if err != nil {
		t.Fatalf("failed to seed setting: %v", err)
	}
}
