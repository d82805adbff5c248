package service

import (
	"context"
	"database/sql"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"collector/internal/mailer"
	"collector/internal/realtime"
	"collector/internal/repository"
	"collector/internal/repository/testutil"
)

// recordingSender 记录发送的邮件，fail 可按收件人注入错误
type recordingSender struct {
	mu   sync.Mutex
	sent []mailer.Message
	fail func(msg mailer.Message) error
}

func (s *recordingSender) Send(ctx context.Context, msg mailer.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail != nil {
		if err := s.fail(msg); err != nil {
			return err
		}
	}
	s.sent = append(s.sent, msg)
	return nil
}

func (s *recordingSender) messages() []mailer.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]mailer.Message(nil), s.sent...)
}

type recordingBroadcaster struct {
	mu     sync.Mutex
	events []realtime.Event
}

func (b *recordingBroadcaster) Broadcast(ev realtime.Event) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
	return 1
}

func (b *recordingBroadcaster) received() []realtime.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]realtime.Event(nil), b.events...)
}

// newMailStack 返回已写入内置模板的数据库、模板服务与邮件服务
func newMailStack(t *testing.T, sender mailer.Sender) (*sql.DB, TemplateService, MailService) {
	t.Helper()
	db := testutil.NewTestDB(t)
	templates := NewTemplateService(repository.NewTemplateRepository(db), "Acme")
	require.NoError(t, templates.SeedBuiltins(context.Background()))
	mail := NewMailService(repository.NewOutboxRepository(db), templates, sender, nil)
	return db, templates, mail
}

func pendingEmails(t *testing.T, db *sql.DB) []string {
	t.Helper()
	rows, err := db.Query(`SELECT to_address FROM pending_emails WHERE status = 'pending' ORDER BY created_at, id`)
	require.NoError(t, err)
	defer rows.Close()

	var out []string
	for rows.Next() {
		var to string
		require.NoError(t, rows.Scan(&to))
		out = append(out, to)
	}
	require.NoError(t, rows.Err())
	return out
}
