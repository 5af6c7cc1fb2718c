package websocket

import (
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, sessionID int64) *Client {
	return &Client{
		hub:       hub,
		sessionID: sessionID,
		send:      make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("expected 3 clients, got %d", got)
	}

	hub.Unregister(c1)
	if got := hub.ClientCount(); got != 2 {
		t.Fatalf("expected 2 clients after unregister, got %d", got)
	}

	hub.Unregister(c2)
	hub.Unregister(c3)
	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestNotifyTargetsOneSession(t *testing.T) {
	hub := NewHub(slog.Default())

	mine := []*Client{mockClient(hub, 7), mockClient(hub, 7)}
	other := mockClient(hub, 8)
	for _, c := range append(mine, other) {
		hub.Register(c)
	}

	toast := Success("Lista salva com sucesso!")
	if sent := hub.Notify(7, toast); sent != 2 {
		t.Errorf("sent = %d, want 2", sent)
	}

	for _, c := range mine {
		select {
		case data := <-c.send:
			var got Toast
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.ID != toast.ID {
				t.Errorf("id = %q, want %q", got.ID, toast.ID)
			}
			if got.Level != LevelSuccess {
				t.Errorf("level = %q, want %q", got.Level, LevelSuccess)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for toast")
		}
	}

	select {
	case <-other.send:
		t.Error("toast leaked to another session")
	default:
	}
}

func TestNotifyUnknownSession(t *testing.T) {
	hub := NewHub(slog.Default())
	if sent := hub.Notify(99, Error("Erro", "")); sent != 0 {
		t.Errorf("sent = %d, want 0", sent)
	}
}

func TestNotifyFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Notify(1, NewToast(LevelInfo, "fill", ""))
	}

	// This should drop the toast, not block
	if sent := hub.Notify(1, NewToast(LevelInfo, "dropped", "")); sent != 0 {
		t.Errorf("sent = %d, want 0 on a full buffer", sent)
	}

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}

	hub.Unregister(c)
}

func TestDisconnectClosesSession(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 5)
	hub.Register(c)

	hub.Disconnect(5)
	if _, ok := <-c.send; ok {
		t.Error("expected send channel closed")
	}
	// Unregister after Disconnect should not panic
	hub.Unregister(c)
	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients, got %d", got)
	}
}

func TestNewToast(t *testing.T) {
	toast := Error("Falha ao salvar", "Tente novamente.")
	if !strings.HasPrefix(toast.ID, "toast-") {
		t.Errorf("id = %q, want toast- prefix", toast.ID)
	}
	if toast.Level != LevelError {
		t.Errorf("level = %q, want %q", toast.Level, LevelError)
	}
	if toast.Text != "Tente novamente." {
		t.Errorf("text = %q", toast.Text)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(sid int64) {
			defer wg.Done()
			c := mockClient(hub, sid)
			hub.Register(c)
			hub.Notify(sid, NewToast(LevelInfo, "concurrent", ""))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 3))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
