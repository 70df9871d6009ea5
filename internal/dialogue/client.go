// Package dialogue delivers dialogue requests to the conversation service over
// a websocket and relays its replies back to the UI.
package dialogue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"npctalk/internal/domain"
)

const (
	defaultQueueSize = 16

	typeRequest = "dialogue.request"
	typeReply   = "dialogue.reply"
)

// Listener receives replies and delivery failures.
type Listener interface {
	DialogueReply(text string)
	SessionError(code domain.ErrorCode, detail string)
}

// Config controls the conversation service connection.
type Config struct {
	URL       string
	QueueSize int
	Header    http.Header
}

type requestEnvelope struct {
	ID      string                 `json:"id"`
	Type    string                 `json:"type"`
	Request domain.DialogueRequest `json:"request"`
}

type replyEnvelope struct {
	ID   string `json:"id,omitempty"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Client implements ports.Dispatcher. Requests are sent in submission order by
// a single worker; the connection is opened on first use and reopened on the
// next request after it drops.
type Client struct {
	cfg      Config
	dialer   *websocket.Dialer
	listener Listener
	logger   *slog.Logger

	queue   chan domain.DialogueRequest
	stopped chan struct{}
	wg      sync.WaitGroup

	startOnce sync.Once
	stopOnce  sync.Once

	connMu sync.Mutex
	conn   *websocket.Conn
}

func NewClient(cfg Config, listener Listener, logger *slog.Logger) *Client {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		listener: listener,
		logger:   logger.With("component", "dialogue"),
		queue:    make(chan domain.DialogueRequest, cfg.QueueSize),
		stopped:  make(chan struct{}),
	}
}

// Start launches the delivery worker. Requests submitted earlier are kept in
// the queue until then.
func (c *Client) Start(ctx context.Context) {
	c.startOnce.Do(func() {
		c.wg.Add(1)
		go c.deliver(ctx)
	})
}

// Submit queues req without blocking. A full queue drops the request.
func (c *Client) Submit(req domain.DialogueRequest) {
	select {
	case <-c.stopped:
		c.logger.Warn("dialogue client closed, dropping request", "session_id", req.SessionID)
		return
	default:
	}

	select {
	case c.queue <- req:
	default:
		c.logger.Warn("dialogue queue full, dropping request", "session_id", req.SessionID)
		c.fail("dialogue queue full")
	}
}

// Close stops the worker and closes the connection. Queued requests that were
// not yet sent are discarded.
func (c *Client) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopped)
		c.dropConn(nil)
	})
	c.wg.Wait()
	return nil
}

func (c *Client) deliver(ctx context.Context) {
	defer c.wg.Done()
	for {
		select {
		case <-ctx.Done():
			c.dropConn(nil)
			return
		case <-c.stopped:
			return
		case req := <-c.queue:
			c.send(ctx, req)
		}
	}
}

func (c *Client) send(ctx context.Context, req domain.DialogueRequest) {
	conn, err := c.connect(ctx)
	if err != nil {
		c.logger.Error("dialogue dial failed, dropping request", "url", c.cfg.URL, "error", err)
		c.fail(err.Error())
		return
	}

	envelope := requestEnvelope{ID: uuid.NewString(), Type: typeRequest, Request: req}
	if err := conn.WriteJSON(envelope); err != nil {
		c.logger.Error("dialogue send failed, dropping request", "id", envelope.ID, "error", err)
		c.dropConn(conn)
		c.fail(fmt.Sprintf("failed to send dialogue request: %v", err))
		return
	}
	c.logger.Info("dialogue request sent", "id", envelope.ID, "persona", req.Persona)
}

func (c *Client) connect(ctx context.Context) (*websocket.Conn, error) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn != nil {
		return c.conn, nil
	}
	if strings.TrimSpace(c.cfg.URL) == "" {
		return nil, errors.New("dialogue service url is not configured")
	}

	conn, _, err := c.dialer.DialContext(ctx, c.cfg.URL, c.cfg.Header)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to dialogue service: %w", err)
	}
	select {
	case <-c.stopped:
		_ = conn.Close()
		return nil, errors.New("dialogue client closed")
	default:
	}
	c.conn = conn
	c.wg.Add(1)
	go c.readReplies(conn)
	return conn, nil
}

// dropConn closes conn if it is still current. A nil conn closes whatever is
// current.
func (c *Client) dropConn(conn *websocket.Conn) {
	c.connMu.Lock()
	defer c.connMu.Unlock()
	if c.conn == nil || (conn != nil && c.conn != conn) {
		return
	}
	_ = c.conn.Close()
	c.conn = nil
}

func (c *Client) readReplies(conn *websocket.Conn) {
	defer c.wg.Done()
	for {
		var reply replyEnvelope
		if err := conn.ReadJSON(&reply); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				c.logger.Debug("dialogue connection ended", "error", err)
			}
			c.dropConn(conn)
			return
		}
		if reply.Type != typeReply {
			c.logger.Debug("ignoring dialogue message", "type", reply.Type)
			continue
		}
		c.logger.Info("dialogue reply received", "id", reply.ID)
		if c.listener != nil {
			c.listener.DialogueReply(reply.Text)
		}
	}
}

func (c *Client) fail(detail string) {
	if c.listener != nil {
		c.listener.SessionError(domain.ErrorCodeDispatch, detail)
	}
}
