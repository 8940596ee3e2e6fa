package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// FakeBackend is an httptest server speaking the poetry backend protocol.
// Every endpoint answers with its configured status and JSON body; the
// zero status means 200.
type FakeBackend struct {
	Server *httptest.Server

	mu     sync.Mutex
	calls  []string
	bodies map[string][]map[string]interface{}

	PoemStatus int
	PoemBody   interface{}

	ImageStatus int
	ImageBody   interface{}

	CardStatus int
	CardBody   interface{}
	// CardHijack drops the connection without an answer
	CardHijack bool

	SaveStatus int
	SaveBody   interface{}

	// Files served under /uploads/
	Files map[string][]byte

	// Hook runs at the start of every API request when set
	Hook func(endpoint string)
}

// NewFakeBackend starts a backend that answers every step successfully
func NewFakeBackend(t *testing.T) *FakeBackend {
	t.Helper()

	b := &FakeBackend{
		bodies: make(map[string][]map[string]interface{}),
		PoemBody: map[string]interface{}{
			"title":   "《秋夜》",
			"content": "月落乌啼霜满天\n江枫渔火对愁眠",
			"comment": "An autumn night by the river.",
		},
		ImageBody: map[string]interface{}{"image_url": "/uploads/scene.jpg"},
		CardBody:  map[string]interface{}{"success": true, "card_url": "/uploads/card.jpg"},
		SaveBody:  map[string]interface{}{"success": true, "id": 1},
		Files: map[string][]byte{
			"scene.jpg": {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x46},
			"card.jpg":  {0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 0x4A, 0x47},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/generate_poetry", b.handler("/api/generate_poetry", func() (int, interface{}) {
		return b.PoemStatus, b.PoemBody
	}))
	mux.HandleFunc("/api/generate_image", b.handler("/api/generate_image", func() (int, interface{}) {
		return b.ImageStatus, b.ImageBody
	}))
	mux.HandleFunc("/api/generate_card", b.handler("/api/generate_card", func() (int, interface{}) {
		return b.CardStatus, b.CardBody
	}))
	mux.HandleFunc("/api/save_poetry", b.handler("/api/save_poetry", func() (int, interface{}) {
		return b.SaveStatus, b.SaveBody
	}))
	mux.HandleFunc("/uploads/", func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(r.URL.Path, "/uploads/")
		b.mu.Lock()
		data, ok := b.Files[name]
		b.mu.Unlock()
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write(data)
	})

	b.Server = httptest.NewServer(mux)
	t.Cleanup(b.Server.Close)

	return b
}

// URL returns the backend root URL
func (b *FakeBackend) URL() string {
	return b.Server.URL
}

// Calls returns the API endpoints hit so far, in order
func (b *FakeBackend) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string{}, b.calls...)
}

// LastBody returns the last decoded JSON body posted to endpoint
func (b *FakeBackend) LastBody(endpoint string) map[string]interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	bodies := b.bodies[endpoint]
	if len(bodies) == 0 {
		return nil
	}
	return bodies[len(bodies)-1]
}

func (b *FakeBackend) handler(endpoint string, answer func() (int, interface{})) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if b.Hook != nil {
			b.Hook(endpoint)
		}

		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		_ = json.Unmarshal(raw, &body)

		b.mu.Lock()
		b.calls = append(b.calls, endpoint)
		b.bodies[endpoint] = append(b.bodies[endpoint], body)
		hijack := endpoint == "/api/generate_card" && b.CardHijack
		status, payload := answer()
		b.mu.Unlock()

		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		if hijack {
			if hj, ok := w.(http.Hijacker); ok {
				conn, _, err := hj.Hijack()
				if err == nil {
					conn.Close()
					return
				}
			}
		}

		if status == 0 {
			status = http.StatusOK
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if s, ok := payload.(string); ok {
			io.WriteString(w, s)
			return
		}
		json.NewEncoder(w).Encode(payload)
	}
}
