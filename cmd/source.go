// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"golang.org/x/term"

	"github.com/Thermoquad/ppmscope/pkg/capture"
	"github.com/Thermoquad/ppmscope/pkg/ppm"
)

// EdgeSource delivers edge timestamps in arrival order, in batches
type EdgeSource interface {
	// ReadBatch blocks until edges are available. A batch returned with
	// an error wrapping capture.ErrSequenceGap follows lost edges.
	ReadBatch() (capture.Batch, error)
	io.Closer
}

// ErrSourceClosed is returned when reading from a closed edge source
var ErrSourceClosed = errors.New("edge source closed")

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// streamSource decodes a capture stream carried by a byte transport
type streamSource struct {
	conn io.ReadCloser
	r    *capture.Reader
}

func newStreamSource(conn io.ReadCloser) *streamSource {
	return &streamSource{conn: conn, r: capture.NewReader(conn)}
}

func (s *streamSource) ReadBatch() (capture.Batch, error) {
	return s.r.Next()
}

func (s *streamSource) Close() error {
	return s.conn.Close()
}

// WebSocketConnection wraps a WebSocket connection for byte-level reading
type WebSocketConnection struct {
	conn      *websocket.Conn
	buf       []byte
	bufOffset int
	closed    bool // Track if connection has failed/closed
}

// ReadMessage returns the next binary message, skipping any others
func (w *WebSocketConnection) ReadMessage() ([]byte, error) {
	// Return immediately if connection is known to be closed
	if w.closed {
		return nil, ErrConnectionClosed
	}

	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			// Mark connection as closed to prevent further read attempts
			w.closed = true
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil, ErrConnectionClosed
			}
			return nil, err
		}

		// Capture batches only travel as binary messages
		if messageType != websocket.BinaryMessage {
			continue
		}
		return data, nil
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	// If we have buffered data, return it first
	if w.bufOffset < len(w.buf) {
		n := copy(p, w.buf[w.bufOffset:])
		w.bufOffset += n
		return n, nil
	}

	data, err := w.ReadMessage()
	if err != nil {
		return 0, err
	}

	// Buffer the message and return what fits
	w.buf = data
	w.bufOffset = 0
	n := copy(p, w.buf)
	w.bufOffset = n
	return n, nil
}

func (w *WebSocketConnection) Close() error {
	w.closed = true
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection to a capture bridge
func OpenSerialConnection(portName string, baudRate int) (io.ReadCloser, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}

	return port, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (*WebSocketConnection, error) {
	// Parse and validate URL
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}

	// Validate scheme
	switch u.Scheme {
	case "ws", "wss":
		// OK
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	// Create dialer with timeout
	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	// Configure TLS for wss://
	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	// Build HTTP headers with Basic auth
	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	// Connect
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}

	return &WebSocketConnection{conn: conn}, nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	// First check environment variable
	if pw := os.Getenv("PPMSCOPE_PASSWORD"); pw != "" {
		return pw, nil
	}

	// Prompt user for password (hide input)
	fmt.Fprint(os.Stderr, "Password: ")

	// Read password without echo
	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Fallback to regular input if terminal functions fail
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(os.Stderr) // newline after password
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr) // newline after password
	return string(passwordBytes), nil
}

// dialWebSocket connects to --url, prompting for a password if needed
func dialWebSocket() (*WebSocketConnection, error) {
	password := ""
	if wsUsername != "" {
		var err error
		password, err = GetPassword()
		if err != nil {
			return nil, err
		}
	}
	return OpenWebSocketConnection(wsURL, wsUsername, password, wsNoSSLVerify)
}

// OpenSource opens the edge source selected by the connection flags.
// cfg sets the timer width for sources that timestamp edges locally.
func OpenSource(cfg ppm.Config) (EdgeSource, string, error) {
	switch {
	case capturePath != "":
		f, err := os.Open(capturePath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to open capture file: %w", err)
		}
		return newStreamSource(f), fmt.Sprintf("File: %s", capturePath), nil

	case wsURL != "":
		conn, err := dialWebSocket()
		if err != nil {
			return nil, "", err
		}
		return newStreamSource(conn), fmt.Sprintf("WebSocket: %s", wsURL), nil

	case portName != "":
		conn, err := OpenSerialConnection(portName, baudRate)
		if err != nil {
			return nil, "", err
		}
		return newStreamSource(conn), fmt.Sprintf("Serial: %s @ %d baud", portName, baudRate), nil

	case gpioChip != "":
		if gpioLine < 0 {
			return nil, "", fmt.Errorf("--gpio-line is required with --gpio-chip")
		}
		src, err := openGPIOSource(gpioChip, gpioLine, gpioEdge, cfg)
		if err != nil {
			return nil, "", err
		}
		return src, fmt.Sprintf("GPIO: %s:%d (%s edge)", gpioChip, gpioLine, gpioEdge), nil
	}

	return nil, "", fmt.Errorf("one of --file, --url, --port or --gpio-chip must be specified")
}

// isEndOfStream reports whether err means the source has no more edges
func isEndOfStream(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, ErrSourceClosed) ||
		errors.Is(err, ErrConnectionClosed) ||
		errors.Is(err, os.ErrClosed)
}
