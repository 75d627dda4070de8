// Package client is the browser-side transport: one TCP connection per
// RPC, a single JSON request line, a single JSON response line, with a
// shared deadline for connect and read.
package client

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/RobertHenschel/HierarchyBrowserv2/internal/model"
	"github.com/RobertHenschel/HierarchyBrowserv2/internal/wire"
)

// DefaultTimeout covers connect plus read for one RPC.
const DefaultTimeout = 10 * time.Second

// Client talks to one provider endpoint.
type Client struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// New returns a client for host:port with the default timeout.
func New(host string, port int) *Client {
	return &Client{Host: host, Port: port, Timeout: DefaultTimeout}
}

// Endpoint renders host:port for logging and nav bookkeeping.
func (c *Client) Endpoint() string {
	return net.JoinHostPort(c.Host, fmt.Sprintf("%d", c.Port))
}

// Info fetches the provider's root name and icon catalog.
func (c *Client) Info(ctx context.Context) (*wire.Info, error) {
	line, err := c.roundTrip(ctx, map[string]any{"method": wire.MethodGetInfo})
	if err != nil {
		return nil, err
	}
	var info wire.Info
	if err := json.Unmarshal(line, &info); err != nil {
		return nil, fmt.Errorf("decode GetInfo response: %w", err)
	}
	return &info, nil
}

// RootObjects fetches the provider's root listing.
func (c *Client) RootObjects(ctx context.Context) ([]*model.Object, error) {
	return c.objectsCall(ctx, map[string]any{"method": wire.MethodGetRootObjects})
}

// Objects fetches the listing for an id, which may carry command tokens.
func (c *Client) Objects(ctx context.Context, id string) ([]*model.Object, error) {
	return c.objectsCall(ctx, map[string]any{"method": wire.MethodGetObjects, "id": id})
}

// Search issues or polls an asynchronous search. handle must be the exact
// object returned by the initial call, or nil to start one.
func (c *Client) Search(ctx context.Context, id, term string, recursive bool, handle *model.Object) ([]*model.Object, error) {
	payload := map[string]any{
		"method":    wire.MethodSearch,
		"id":        id,
		"search":    term,
		"recursive": recursive,
	}
	if handle != nil {
		payload["search_handle"] = handle
	}
	return c.objectsCall(ctx, payload)
}

func (c *Client) objectsCall(ctx context.Context, payload any) ([]*model.Object, error) {
	line, err := c.roundTrip(ctx, payload)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Objects []json.RawMessage `json:"objects"`
		Error   string            `json:"error"`
	}
	if err := json.Unmarshal(line, &resp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if resp.Error != "" {
		return nil, fmt.Errorf("provider error: %s", resp.Error)
	}
	return model.DecodeList(resp.Objects), nil
}

// roundTrip opens a connection, writes one request line, and reads the
// response up to its terminating newline.
func (c *Client) roundTrip(ctx context.Context, payload any) ([]byte, error) {
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	deadline := time.Now().Add(timeout)

	dialer := net.Dialer{Deadline: deadline}
	conn, err := dialer.DialContext(ctx, "tcp", c.Endpoint())
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", c.Endpoint(), err)
	}
	defer conn.Close()
	conn.SetDeadline(deadline)

	if err := wire.WriteLine(conn, payload); err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	line, err := wire.ReadLine(bufio.NewReader(conn))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return line, nil
}
