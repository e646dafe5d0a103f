// Package push maintains the WebSocket channel that delivers membership
// status updates to the dashboard.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	pkgapi "github.com/fitzone/fitzone-cli/pkg/api"
)

// Reconnect policy, mirroring the web client this replaces.
const (
	MaxReconnectAttempts = 5
	ReconnectDelay       = 3 * time.Second
)

// Client подписывается на push-обновления членства
type Client struct {
	url     string
	dialer  *websocket.Dialer
	updates chan pkgapi.MembershipUpdate

	mu      sync.Mutex
	conn    *websocket.Conn
	stop    chan struct{}
	done    chan struct{}
	started bool
}

// New создает push-клиент для данного ws:// или wss:// URL
func New(url string) *Client {
	return &Client{
		url:     url,
		dialer:  &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		updates: make(chan pkgapi.MembershipUpdate, 16),
	}
}

// Start opens the connection and begins delivering updates. Reconnects are
// bounded: after MaxReconnectAttempts failures in a row the client gives up
// and closes the updates channel.
func (c *Client) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.started {
		c.mu.Unlock()
		return fmt.Errorf("push client already started")
	}
	c.started = true
	c.stop = make(chan struct{})
	c.done = make(chan struct{})
	c.mu.Unlock()

	go c.run(ctx)
	return nil
}

// Updates возвращает канал обновлений; закрывается когда клиент сдается
func (c *Client) Updates() <-chan pkgapi.MembershipUpdate {
	return c.updates
}

// Close останавливает чтение и таймер переподключения
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.started {
		return nil
	}
	c.started = false
	close(c.stop)

	if c.conn != nil {
		_ = c.conn.Close()
	}
	<-c.done
	return nil
}

func (c *Client) run(ctx context.Context) {
	defer close(c.done)
	defer close(c.updates)

	attempts := 0
	for {
		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := c.dialer.DialContext(ctx, c.url, nil)
		if err != nil {
			attempts++
			if attempts > MaxReconnectAttempts {
				slog.Warn("push channel gave up reconnecting", "attempts", attempts-1)
				return
			}
			// Задержка растет с номером попытки
			delay := ReconnectDelay * time.Duration(attempts)
			slog.Debug("push reconnect scheduled", "attempt", attempts, "delay", delay)
			select {
			case <-time.After(delay):
				continue
			case <-c.stop:
				return
			case <-ctx.Done():
				return
			}
		}

		attempts = 0
		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		slog.Debug("push channel connected", "url", c.url)

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()

		select {
		case <-c.stop:
			return
		case <-ctx.Done():
			return
		default:
			// Соединение оборвалось: идем на переподключение
		}
	}
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer func() {
		_ = conn.Close()
	}()

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			slog.Debug("push channel closed", "error", err)
			return
		}

		var update pkgapi.MembershipUpdate
		if err := json.Unmarshal(message, &update); err != nil {
			slog.Warn("failed to parse membership update", "error", err)
			continue
		}

		// Медленный получатель теряет старые обновления, не новые
		select {
		case c.updates <- update:
		default:
			select {
			case <-c.updates:
			default:
			}
			select {
			case c.updates <- update:
			default:
			}
		}
	}
}
