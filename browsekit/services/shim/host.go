package shim

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"sync"
	"time"

	"browsekit/browsekit/services/program"
)

// Call is one request the host received.
type Call struct {
	Path string
	At   time.Time
}

// Host serves /function and /screenshot the way the hosted browser does,
// backed by an Interpreter. Use it behind httptest or the mock-host command.
type Host struct {
	Token       string
	Interpreter *Interpreter
	// Screenshot is returned by /screenshot; a 1x1 PNG when nil.
	Screenshot []byte
	// Latency delays every response, honoring request cancellation.
	Latency time.Duration
	// Fail, when set, can reject a program before it runs.
	Fail func(prog program.Program) error

	mu    sync.Mutex
	calls []Call
}

// Calls returns a snapshot of received requests in arrival order.
func (h *Host) Calls() []Call {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]Call(nil), h.calls...)
}

func (h *Host) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	h.calls = append(h.calls, Call{Path: r.URL.Path, At: time.Now()})
	h.mu.Unlock()

	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if h.Token != "" && r.URL.Query().Get("token") != h.Token {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if h.Latency > 0 {
		select {
		case <-time.After(h.Latency):
		case <-r.Context().Done():
			return
		}
	}

	switch r.URL.Path {
	case "/function":
		h.function(w, r)
	case "/screenshot":
		h.screenshot(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (h *Host) function(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Code    string `json:"code"`
		Context struct {
			Program program.Program `json:"program"`
		} `json:"context"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "bad request: "+err.Error(), http.StatusBadRequest)
		return
	}
	prog := body.Context.Program
	if h.Fail != nil {
		if err := h.Fail(prog); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
	interp := h.Interpreter
	if interp == nil {
		interp = &Interpreter{}
	}
	result, err := interp.Run(r.Context(), prog)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Host) screenshot(w http.ResponseWriter, r *http.Request) {
	var params program.ScreenshotParams
	if err := json.NewDecoder(r.Body).Decode(&params); err != nil || params.URL == "" {
		http.Error(w, "bad request: url is required", http.StatusBadRequest)
		return
	}
	img := h.Screenshot
	if img == nil {
		img = blankPNG()
	}
	ct := "image/png"
	switch params.Options.Type {
	case "jpeg":
		ct = "image/jpeg"
	case "webp":
		ct = "image/webp"
	}
	w.Header().Set("Content-Type", ct)
	_, _ = w.Write(img)
}

var (
	blankOnce sync.Once
	blank     []byte
)

func blankPNG() []byte {
	blankOnce.Do(func() {
		img := image.NewRGBA(image.Rect(0, 0, 1, 1))
		img.Set(0, 0, color.White)
		var buf bytes.Buffer
		_ = png.Encode(&buf, img)
		blank = buf.Bytes()
	})
	return blank
}
