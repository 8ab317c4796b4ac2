package apcaccess

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/node-pulse/apcupsd-exporter/internal/logger"
)

const (
	// DefaultPort is the port apcupsd's NIS listens on
	DefaultPort uint16 = 3551

	// readBufferSize is the size of each socket read
	readBufferSize = 1024
)

// cmdStatus is the only request frame the client ever sends:
// a 2-byte big-endian length (6) followed by "status".
var cmdStatus = []byte("\x00\x06status")

// terminator marks the end of a status response
const terminator = "  \n\x00\x00"

// Client talks to a single apcupsd NIS endpoint.
// It holds no connection state; every call opens and closes its own connection.
type Client struct {
	Host       string
	Port       uint16
	Timeout    time.Duration
	StripUnits bool
	Units      UnitTable
}

// NewClient creates a client with the default unit table
func NewClient(host string, port uint16, timeout time.Duration, stripUnits bool) *Client {
	return &Client{
		Host:       host,
		Port:       port,
		Timeout:    timeout,
		StripUnits: stripUnits,
		Units:      DefaultUnits,
	}
}

// Addr returns the host:port the client dials
func (c *Client) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(int(c.Port)))
}

// Get connects to the NIS, sends the status command and returns the raw
// response decoded as text. Invalid UTF-8 is replaced, never rejected.
func (c *Client) Get(ctx context.Context) (string, error) {
	addr := c.Addr()

	dialer := net.Dialer{Timeout: c.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return "", &IOError{Op: "dial", Addr: addr, Err: err}
	}
	defer conn.Close()

	if err := conn.SetWriteDeadline(time.Now().Add(c.Timeout)); err != nil {
		return "", &IOError{Op: "write", Addr: addr, Err: err}
	}
	if _, err := conn.Write(cmdStatus); err != nil {
		return "", &IOError{Op: "write", Addr: addr, Err: err}
	}

	raw, err := readResponse(conn, c.Timeout)
	if err != nil {
		return "", &IOError{Op: "read", Addr: addr, Err: err}
	}

	logger.Debug("Read apcupsd status response",
		logger.String("addr", addr),
		logger.Int("bytes", len(raw)))

	return strings.ToValidUTF8(string(raw), "\uFFFD"), nil
}

// readResponse accumulates reads until the peer closes or the buffer ends
// with the terminator. A response cut short by the peer is returned as-is.
func readResponse(conn net.Conn, timeout time.Duration) ([]byte, error) {
	var acc []byte
	buf := make([]byte, readBufferSize)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(timeout)); err != nil {
			return nil, err
		}

		n, err := conn.Read(buf)
		acc = append(acc, buf[:n]...)

		if err != nil {
			if errors.Is(err, io.EOF) {
				return acc, nil
			}
			return nil, err
		}
		if n == 0 {
			return acc, nil
		}
		if bytes.HasSuffix(acc, []byte(terminator)) {
			return acc, nil
		}
	}
}

// Get is a one-shot convenience wrapper around Client.Get
func Get(host string, port uint16, timeout time.Duration) (string, error) {
	return NewClient(host, port, timeout, false).Get(context.Background())
}
