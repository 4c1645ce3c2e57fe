package notify

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type telegramStub struct {
	calls    int32
	lastForm atomic.Value
	ok       bool
}

func (s *telegramStub) server(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&s.calls, 1)
		assert.Equal(t, "/bot123:ABC/sendMessage", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		s.lastForm.Store(r.PostForm)

		w.Header().Set("Content-Type", "application/json")
		if !s.ok {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: chat not found"}`))
			return
		}
		w.Write([]byte(`{"ok":true,"result":{"message_id":42,"date":1717400000,"chat":{"id":-100123,"type":"channel"},"text":"x"}}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestTelegram(srvURL, token, chatID string) *TelegramNotifier {
	return NewTelegramNotifier(TelegramConfig{
		BotToken:    token,
		ChatID:      chatID,
		APIEndpoint: srvURL + "/bot%s/%s",
		ParseMode:   "Markdown",
		Timeout:     2 * time.Second,
	}, zerolog.Nop())
}

func TestTelegramNotifier_Send(t *testing.T) {
	stub := &telegramStub{ok: true}
	srv := stub.server(t)

	n := newTestTelegram(srv.URL, "123:ABC", "-100123")
	ok := n.Send(context.Background(), "🚨 YF: *HOOD ABOVE*")

	require.True(t, ok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))

	form := stub.lastForm.Load().(url.Values)
	assert.Equal(t, []string{"-100123"}, form["chat_id"])
	assert.Equal(t, []string{"Markdown"}, form["parse_mode"])
	assert.Equal(t, []string{"🚨 YF: *HOOD ABOVE*"}, form["text"])
}

func TestTelegramNotifier_ChannelUsername(t *testing.T) {
	stub := &telegramStub{ok: true}
	srv := stub.server(t)

	n := newTestTelegram(srv.URL, "123:ABC", "@price_alerts")
	require.True(t, n.Send(context.Background(), "hello"))

	form := stub.lastForm.Load().(url.Values)
	assert.Equal(t, []string{"@price_alerts"}, form["chat_id"])
}

func TestTelegramNotifier_Rejected(t *testing.T) {
	stub := &telegramStub{ok: false}
	srv := stub.server(t)

	n := newTestTelegram(srv.URL, "123:ABC", "-100123")
	assert.False(t, n.Send(context.Background(), "hello"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

func TestTelegramNotifier_Unreachable(t *testing.T) {
	n := newTestTelegram("http://127.0.0.1:1", "123:ABC", "-100123")
	assert.False(t, n.Send(context.Background(), "hello"))
}

func TestTelegramNotifier_MissingCredentialsMakesNoRequest(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		chatID string
	}{
		{"no token", "", "-100123"},
		{"no chat", "123:ABC", ""},
		{"blank chat", "123:ABC", "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := &telegramStub{ok: true}
			srv := stub.server(t)

			n := newTestTelegram(srv.URL, tt.token, tt.chatID)
			assert.False(t, n.Send(context.Background(), "hello"))
			assert.Equal(t, int32(0), atomic.LoadInt32(&stub.calls))
		})
	}
}

func TestTelegramNotifier_CancelledWhileRateLimited(t *testing.T) {
	stub := &telegramStub{ok: true}
	srv := stub.server(t)

	n := NewTelegramNotifier(TelegramConfig{
		BotToken:          "123:ABC",
		ChatID:            "-100123",
		APIEndpoint:       srv.URL + "/bot%s/%s",
		MessagesPerSecond: 1,
	}, zerolog.Nop())

	require.True(t, n.Send(context.Background(), "first"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, n.Send(ctx, "second"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&stub.calls))
}

type recordingNotifier struct {
	name     string
	ok       bool
	messages []string
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(ctx context.Context, message string) bool {
	r.messages = append(r.messages, message)
	return r.ok
}

func TestMultiNotifier(t *testing.T) {
	a := &recordingNotifier{name: "a", ok: true}
	b := &recordingNotifier{name: "b", ok: false}

	assert.True(t, NewMultiNotifier(zerolog.Nop(), a).Send(context.Background(), "one"))

	mn := NewMultiNotifier(zerolog.Nop(), a, b)
	assert.False(t, mn.Send(context.Background(), "two"))
	assert.Equal(t, []string{"one", "two"}, a.messages)
	assert.Equal(t, []string{"two"}, b.messages, "every channel is attempted")

	assert.False(t, NewMultiNotifier(zerolog.Nop()).Send(context.Background(), "x"))
}

func TestTerminalNotifier(t *testing.T) {
	var buf bytes.Buffer
	tn := NewTerminalNotifier(&buf, MarkupMarkdown)
	tn.SetColorEnabled(false)
	tn.now = func() time.Time { return time.Date(2025, 6, 3, 14, 30, 5, 0, time.UTC) }

	msg := "🚨 YF: *HOOD ABOVE*\n💰 $81.75\n📈 > $80"
	require.True(t, tn.Send(context.Background(), msg))

	want := "[14:30:05] ALERT\n  🚨 YF: HOOD ABOVE\n  💰 $81.75\n  📈 > $80\n"
	assert.Equal(t, want, buf.String())

	tn.SetBellEnabled(true)
	buf.Reset()
	require.True(t, tn.Send(context.Background(), "x"))
	assert.True(t, strings.HasPrefix(buf.String(), "\a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	buf.Reset()
	assert.False(t, tn.Send(ctx, "x"))
	assert.Empty(t, buf.String())
}

func TestTerminalNotifier_UnescapesSymbols(t *testing.T) {
	tests := []struct {
		markup Markup
		msg    string
	}{
		{MarkupMarkdown, "🚨 YF: *BRK\\_B ABOVE*"},
		{MarkupMarkdownV2, "🚨 YF: *BRK\\_B ABOVE*"},
		{MarkupHTML, "🚨 YF: <b>BRK_B ABOVE</b>"},
		{MarkupPlain, "🚨 YF: BRK_B ABOVE"},
	}

	for _, tt := range tests {
		t.Run(string(tt.markup), func(t *testing.T) {
			var buf bytes.Buffer
			tn := NewTerminalNotifier(&buf, tt.markup)
			tn.SetColorEnabled(false)
			tn.now = func() time.Time { return time.Date(2025, 6, 3, 14, 30, 5, 0, time.UTC) }

			require.True(t, tn.Send(context.Background(), tt.msg))
			assert.Equal(t, "[14:30:05] ALERT\n  🚨 YF: BRK_B ABOVE\n", buf.String())
		})
	}
}

func TestMarkup_EscapeAndBold(t *testing.T) {
	assert.Equal(t, "*BRK\\_B*", MarkupMarkdown.Bold("BRK_B"))
	assert.Equal(t, "*BRK\\.B*", MarkupMarkdownV2.Bold("BRK.B"))
	assert.Equal(t, "<b>A&amp;B</b>", MarkupHTML.Bold("A&B"))
	assert.Equal(t, "BRK_B", MarkupPlain.Bold("BRK_B"))
	assert.Equal(t, "a\\`b", MarkupMarkdown.Escape("a`b"))
}

func TestParseMarkup(t *testing.T) {
	tests := []struct {
		in   string
		want Markup
	}{
		{"Markdown", MarkupMarkdown},
		{"markdownv2", MarkupMarkdownV2},
		{"HTML", MarkupHTML},
		{"", MarkupPlain},
		{"None", MarkupPlain},
	}
	for _, tt := range tests {
		got, err := ParseMarkup(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	_, err := ParseMarkup("bbcode")
	assert.Error(t, err)
}
