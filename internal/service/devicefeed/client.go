package devicefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/gorilla/websocket"

	"github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/models"
	drepo "github.com/n2ilva/MotoristaInteligente-sub003/internal/domain/repository"
)

// Client implements an ObservationStream backed by the capture gateway's
// WebSocket. Each frame is one screen-change event from a driver's device.
type Client struct {
	gatewayURL     string
	token          string
	reconnectDelay time.Duration
	pingInterval   time.Duration

	conn      *websocket.Conn
	connected bool
}

// New creates a new device feed ObservationStream.
func New(gatewayURL, token string, reconnectDelay, pingInterval time.Duration) drepo.ObservationStream {
	return &Client{
		gatewayURL:     gatewayURL,
		token:          token,
		reconnectDelay: reconnectDelay,
		pingInterval:   pingInterval,
	}
}

// Connect establishes the WebSocket connection.
func (c *Client) Connect(ctx context.Context) error {
	u := c.gatewayURL
	if c.token != "" {
		u = fmt.Sprintf("%s?token=%s", c.gatewayURL, c.token)
	}
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u, nil)
	if err != nil {
		return fmt.Errorf("devicefeed connect: %w", err)
	}
	c.conn = conn
	c.connected = true
	log.Printf("devicefeed: connected")
	return nil
}

// wsFrame wraps one observation; the type field lets the gateway interleave
// keepalive frames on the same socket.
type wsFrame struct {
	Type string                 `json:"type"`
	Data *models.RawObservation `json:"data"`
}

// Read streams observation events and errors.
func (c *Client) Read(ctx context.Context) (<-chan *models.RawObservation, <-chan error) {
	observations := make(chan *models.RawObservation, 1024)
	errs := make(chan error, 1)

	// ping loop
	go func() {
		ticker := time.NewTicker(c.pingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if c.conn != nil {
					_ = c.conn.WriteMessage(websocket.PingMessage, nil)
				}
			}
		}
	}()

	// read loop
	go func() {
		defer close(observations)
		defer close(errs)
		for {
			select {
			case <-ctx.Done():
				return
			default:
				if c.conn == nil {
					errs <- fmt.Errorf("devicefeed conn nil")
					return
				}
				_, b, err := c.conn.ReadMessage()
				if err != nil {
					errs <- fmt.Errorf("devicefeed read: %w", err)
					return
				}
				var f wsFrame
				if err := json.Unmarshal(b, &f); err != nil {
					// ignore malformed frames
					continue
				}
				if f.Type != "observation" || f.Data == nil {
					continue
				}
				if f.Data.Timestamp.IsZero() {
					f.Data.Timestamp = time.Now()
				}
				select {
				case observations <- f.Data:
				default:
					// drop on backpressure
				}
			}
		}
	}()

	return observations, errs
}

// Reconnect closes and reconnects.
func (c *Client) Reconnect(ctx context.Context) error {
	_ = c.Close()
	time.Sleep(c.reconnectDelay)
	return c.Connect(ctx)
}

// Close closes the WS connection.
func (c *Client) Close() error {
	c.connected = false
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// IsConnected indicates status.
func (c *Client) IsConnected() bool { return c.connected }
