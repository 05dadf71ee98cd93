package dev

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Reload endpoints served by the dev server.
const (
	ReloadPath = "/_assetkit/reload"
	ClientPath = "/_assetkit/client.js"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = pongWait * 9 / 10
	sendBuffer   = 16
)

// ReloadMessageType is the kind of notification sent to browsers.
type ReloadMessageType string

const (
	ReloadTypeFull  ReloadMessageType = "reload"
	ReloadTypeCSS   ReloadMessageType = "css"
	ReloadTypeError ReloadMessageType = "error"
	ReloadTypeClear ReloadMessageType = "clear"
)

// ReloadMessage is the JSON frame pushed to browsers.
type ReloadMessage struct {
	Type      ReloadMessageType `json:"type"`
	Files     []string          `json:"files,omitempty"`
	Error     string            `json:"error,omitempty"`
	Timestamp int64             `json:"timestamp"`
}

type reloadClient struct {
	conn *websocket.Conn
	send chan []byte
}

// ReloadServer fans reload notifications out to connected browsers. Each
// connection has its own send queue drained by a writer goroutine; a client
// whose queue is full is dropped.
type ReloadServer struct {
	mu       sync.RWMutex
	clients  map[*reloadClient]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewReloadServer creates a reload server.
func NewReloadServer(logger *slog.Logger) *ReloadServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReloadServer{
		clients: make(map[*reloadClient]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  512,
			WriteBufferSize: 1024,
			CheckOrigin:     localOrigin,
		},
		logger: logger,
	}
}

// localOrigin accepts requests without an Origin header, from the host
// being served, or from a loopback address.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == r.Host {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// HandleWebSocket upgrades the request and blocks until the browser goes
// away.
func (r *ReloadServer) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		r.logger.Debug("reload upgrade failed", "remote", req.RemoteAddr, "error", err)
		return
	}

	c := &reloadClient{conn: conn, send: make(chan []byte, sendBuffer)}
	r.mu.Lock()
	r.clients[c] = struct{}{}
	n := len(r.clients)
	r.mu.Unlock()
	r.logger.Debug("reload client connected", "clients", n)

	go r.writeLoop(c)

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				r.logger.Debug("reload client error", "error", err)
			}
			break
		}
	}
	r.drop(c)
}

// writeLoop drains c.send and keeps the connection alive with pings. It
// closes the connection when the queue is closed.
func (r *ReloadServer) writeLoop(c *reloadClient) {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "server stopped"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				r.drop(c)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				r.drop(c)
				return
			}
		}
	}
}

// drop unregisters c and closes its queue. Safe to call more than once.
func (r *ReloadServer) drop(c *reloadClient) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.clients[c]; ok {
		delete(r.clients, c)
		close(c.send)
	}
}

// NotifyReload asks browsers for a full page reload.
func (r *ReloadServer) NotifyReload() {
	r.broadcast(ReloadMessage{Type: ReloadTypeFull})
}

// NotifyCSS asks browsers to refetch the given stylesheets, or all of them
// when files is empty.
func (r *ReloadServer) NotifyCSS(files []string) {
	r.broadcast(ReloadMessage{Type: ReloadTypeCSS, Files: files})
}

// NotifyError shows msg in the browser error overlay.
func (r *ReloadServer) NotifyError(msg string) {
	r.broadcast(ReloadMessage{Type: ReloadTypeError, Error: msg})
}

// ClearError removes the browser error overlay.
func (r *ReloadServer) ClearError() {
	r.broadcast(ReloadMessage{Type: ReloadTypeClear})
}

func (r *ReloadServer) broadcast(msg ReloadMessage) {
	msg.Timestamp = time.Now().Unix()
	data, err := json.Marshal(msg)
	if err != nil {
		r.logger.Error("encode reload message", "error", err)
		return
	}

	var slow []*reloadClient
	r.mu.RLock()
	for c := range r.clients {
		select {
		case c.send <- data:
		default:
			slow = append(slow, c)
		}
	}
	r.mu.RUnlock()

	for _, c := range slow {
		r.logger.Debug("dropping slow reload client")
		r.drop(c)
	}
}

// ClientCount returns the number of connected browsers.
func (r *ReloadServer) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// Close disconnects every browser.
func (r *ReloadServer) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		delete(r.clients, c)
		close(c.send)
	}
}

// ServeClient serves ClientScript.
func (r *ReloadServer) ServeClient(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Write([]byte(ClientScript))
}

// ClientScript is the browser half of hot reload, loaded with
// <script src="/_assetkit/client.js"></script>.
const ClientScript = `(() => {
  const endpoint = (location.protocol === "https:" ? "wss://" : "ws://") + location.host + "` + ReloadPath + `";
  const overlayId = "assetkit-overlay";
  let delay = 500;

  const overlay = (text) => {
    let el = document.getElementById(overlayId);
    if (text === null) {
      if (el) el.remove();
      return;
    }
    if (!el) {
      el = document.createElement("pre");
      el.id = overlayId;
      el.style.cssText = "position:fixed;inset:0;margin:0;padding:24px;z-index:2147483647;" +
        "overflow:auto;white-space:pre-wrap;background:#1d1f21ee;color:#f66;font:13px/1.5 ui-monospace,monospace";
      document.body.appendChild(el);
    }
    el.textContent = "assetkit build failed\n\n" + text;
  };

  // site.css matches site.css and fingerprinted site.<token>.css.
  const stem = (p) => p.split("/").pop().replace(/\.css$/, "") + ".";
  const refreshStyles = (files) => {
    const links = [...document.querySelectorAll('link[rel="stylesheet"][href]')];
    const stems = (files || []).map(stem);
    const matched = links.filter((link) => stems.some((s) => stem(new URL(link.href).pathname).startsWith(s)));
    (matched.length ? matched : links).forEach((link) => {
      const url = new URL(link.href);
      url.searchParams.set("assetkit", Date.now());
      link.href = url.toString();
    });
  };

  const connect = () => {
    const ws = new WebSocket(endpoint);
    ws.onopen = () => { delay = 500; };
    ws.onmessage = (event) => {
      let msg;
      try { msg = JSON.parse(event.data); } catch { return; }
      if (msg.type === "reload") location.reload();
      else if (msg.type === "css") refreshStyles(msg.files);
      else if (msg.type === "error") overlay(msg.error);
      else if (msg.type === "clear") overlay(null);
    };
    ws.onclose = () => {
      setTimeout(connect, delay);
      delay = Math.min(delay * 2, 10000);
    };
  };

  if (document.readyState === "loading") document.addEventListener("DOMContentLoaded", connect);
  else connect();
})();
`
