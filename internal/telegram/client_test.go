package telegram

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"tgbatch/internal/config"
	"tgbatch/internal/transport"
)

// fakeBotAPI serves a handful of Bot API methods for token "T"
func fakeBotAPI(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/botT/getMe":
			io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"username":"test_bot"}}`)
		case "/botT/getFile":
			_ = r.ParseForm()
			switch r.PostForm.Get("file_id") {
			case "doc":
				io.WriteString(w, `{"ok":true,"result":{"file_id":"doc","file_unique_id":"u1","file_size":5,"file_path":"documents/file_1.txt"}}`)
			case "nopath":
				io.WriteString(w, `{"ok":true,"result":{"file_id":"nopath","file_unique_id":"u2"}}`)
			default:
				w.WriteHeader(http.StatusBadRequest)
				io.WriteString(w, `{"ok":false,"error_code":400,"description":"Bad Request: invalid file_id"}`)
			}
		case "/file/botT/documents/file_1.txt":
			io.WriteString(w, "hello")
		case "/botT/sendMessage":
			_ = r.ParseForm()
			chat := r.PostForm.Get("chat_id")
			switch chat {
			case "403":
				w.WriteHeader(http.StatusForbidden)
				io.WriteString(w, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)
			case "500":
				w.WriteHeader(http.StatusInternalServerError)
				io.WriteString(w, "internal error")
			default:
				fmt.Fprintf(w, `{"ok":true,"result":{"message_id":1,"chat":{"id":%s},"text":%q}}`, chat, r.PostForm.Get("text"))
			}
		default:
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"ok":false,"error_code":404,"description":"Not Found"}`)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	cfg := config.Default("T")
	cfg.BaseURL = srv.URL + "/bot"
	cfg.FileURL = srv.URL + "/file/bot"
	cfg.Transport.PollInterval = 10

	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(c.Close)
	return c
}

func TestClient_Call(t *testing.T) {
	c := newTestClient(t, fakeBotAPI(t))

	raw, err := c.Call(context.Background(), "getMe", nil)
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	var me struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(raw, &me); err != nil || me.Username != "test_bot" {
		t.Errorf("getMe = %s (%v)", raw, err)
	}

	_, err = c.Call(context.Background(), "noSuchMethod", nil)
	var perr *transport.ProtocolError
	if !errors.As(err, &perr) || perr.StatusCode != http.StatusNotFound {
		t.Errorf("err = %v, want 404 *ProtocolError", err)
	}
}

func TestClient_DownloadFile(t *testing.T) {
	c := newTestClient(t, fakeBotAPI(t))
	ctx := context.Background()

	data, err := c.DownloadFile(ctx, "doc")
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("data = %q", data)
	}

	if _, err := c.DownloadFile(ctx, "nopath"); !errors.Is(err, ErrEmptyFilePath) {
		t.Errorf("err = %v, want ErrEmptyFilePath", err)
	}

	_, err = c.DownloadFile(ctx, "bogus")
	var perr *transport.ProtocolError
	if !errors.As(err, &perr) || perr.Description != "Bad Request: invalid file_id" {
		t.Errorf("err = %v, want *ProtocolError", err)
	}
}

func TestClient_DownloadFile_LocalServer(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "file_9.bin")
	if err := os.WriteFile(local, []byte("local bytes"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"ok":true,"result":{"file_id":"x","file_unique_id":"y","file_path":%q}}`, local)
	}))
	defer srv.Close()

	cfg := config.Default("T")
	cfg.BaseURL = srv.URL + "/bot"
	cfg.FileURL = ""
	c, err := New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer c.Close()

	data, err := c.DownloadFile(context.Background(), "x")
	if err != nil {
		t.Fatalf("DownloadFile: %v", err)
	}
	if string(data) != "local bytes" {
		t.Errorf("data = %q", data)
	}
}

func TestClient_Notify(t *testing.T) {
	c := newTestClient(t, fakeBotAPI(t))

	chats := []int64{10, 403, 20, 500, 30}
	report, err := c.Notify(context.Background(), chats, "deploy finished", &SendOptions{DisableNotification: true})
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}

	if report.Total != len(chats) {
		t.Errorf("Total = %d", report.Total)
	}

	delivered := append([]int64(nil), report.Delivered...)
	sort.Slice(delivered, func(i, j int) bool { return delivered[i] < delivered[j] })
	if fmt.Sprint(delivered) != "[10 20 30]" {
		t.Errorf("Delivered = %v", delivered)
	}

	if len(report.Failed) != 2 {
		t.Fatalf("Failed = %v", report.Failed)
	}
	if !strings.Contains(report.Failed[403], "blocked") {
		t.Errorf("Failed[403] = %q", report.Failed[403])
	}
	if report.Failed[500] != "Invalid JSON response" {
		t.Errorf("Failed[500] = %q", report.Failed[500])
	}

	if c.Transport().InFlight() != 0 {
		t.Errorf("InFlight = %d, want 0", c.Transport().InFlight())
	}
}

func TestClient_Notify_NoChats(t *testing.T) {
	c := newTestClient(t, fakeBotAPI(t))

	report, err := c.Notify(context.Background(), nil, "x", nil)
	if err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if report.Total != 0 || len(report.Delivered) != 0 || len(report.Failed) != 0 {
		t.Errorf("report = %+v", report)
	}
	if c.Transport().Stats().Requests != 0 {
		t.Errorf("requests = %d, want 0", c.Transport().Stats().Requests)
	}
}
