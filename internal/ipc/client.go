package ipc

import (
	"net"
	"net/rpc"
	"net/rpc/jsonrpc"
	"time"

	"serialscan/internal/ocr"
)

// Client provides RPC access to the daemon.
type Client struct {
	conn   net.Conn
	client *rpc.Client
}

// Dial connects to the IPC server at the given socket path.
func Dial(path string) (*Client, error) {
	conn, err := net.DialTimeout("unix", path, 2*time.Second)
	if err != nil {
		return nil, err
	}
	rpcClient := rpc.NewClientWithCodec(jsonrpc.NewClientCodec(conn))
	return &Client{conn: conn, client: rpcClient}, nil
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	if c.client != nil {
		_ = c.client.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Start requests the daemon to start.
func (c *Client) Start() (*StartResponse, error) {
	var resp StartResponse
	if err := c.client.Call("Serialscan.Start", StartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Stop requests the daemon to stop.
func (c *Client) Stop() (*StopResponse, error) {
	var resp StopResponse
	if err := c.client.Call("Serialscan.Stop", StopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Status retrieves the daemon status.
func (c *Client) Status() (*StatusResponse, error) {
	var resp StatusResponse
	if err := c.client.Call("Serialscan.Status", StatusRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScanStart begins a new scan session.
func (c *Client) ScanStart() (*ScanStartResponse, error) {
	var resp ScanStartResponse
	if err := c.client.Call("Serialscan.ScanStart", ScanStartRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScanStop abandons the in-progress scan session.
func (c *Client) ScanStop() (*ScanStopResponse, error) {
	var resp ScanStopResponse
	if err := c.client.Call("Serialscan.ScanStop", ScanStopRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// TrackFrame feeds one OCR frame to the daemon pipeline.
func (c *Client) TrackFrame(frame ocr.Frame) (*TrackFrameResponse, error) {
	var resp TrackFrameResponse
	if err := c.client.Call("Serialscan.TrackFrame", TrackFrameRequest{Frame: frame}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ForceUnlock discards the current consensus.
func (c *Client) ForceUnlock() (*ForceUnlockResponse, error) {
	var resp ForceUnlockResponse
	if err := c.client.Call("Serialscan.ForceUnlock", ForceUnlockRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsList returns sessions optionally filtered by statuses.
func (c *Client) SessionsList(statuses []string) (*SessionsListResponse, error) {
	var resp SessionsListResponse
	req := SessionsListRequest{Statuses: statuses}
	if err := c.client.Call("Serialscan.SessionsList", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// LastLocked returns the most recent locked session.
func (c *Client) LastLocked() (*LastLockedResponse, error) {
	var resp LastLockedResponse
	if err := c.client.Call("Serialscan.LastLocked", LastLockedRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsClear removes sessions, optionally only abandoned ones.
func (c *Client) SessionsClear(abandonedOnly bool) (*SessionsClearResponse, error) {
	var resp SessionsClearResponse
	req := SessionsClearRequest{AbandonedOnly: abandonedOnly}
	if err := c.client.Call("Serialscan.SessionsClear", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SessionsHealth returns session diagnostics.
func (c *Client) SessionsHealth() (*SessionsHealthResponse, error) {
	var resp SessionsHealthResponse
	if err := c.client.Call("Serialscan.SessionsHealth", SessionsHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DatabaseHealth retrieves detailed database diagnostics.
func (c *Client) DatabaseHealth() (*DatabaseHealthResponse, error) {
	var resp DatabaseHealthResponse
	if err := c.client.Call("Serialscan.DatabaseHealth", DatabaseHealthRequest{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
