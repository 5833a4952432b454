// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bufio"
	"context"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"go.bug.st/serial"
	"go.uber.org/zap"
	"golang.org/x/term"
)

// Connection is the byte channel to the sensor, over serial or WebSocket.
// A read that times out returns 0 bytes and no error.
type Connection interface {
	io.Reader
	io.Writer
	io.Closer
	SetReadTimeout(t time.Duration) error
	ResetInputBuffer() error
}

// SerialConnection wraps a serial port
type SerialConnection struct {
	port serial.Port
}

func (s *SerialConnection) Read(p []byte) (int, error) {
	return s.port.Read(p)
}

func (s *SerialConnection) Write(p []byte) (int, error) {
	return s.port.Write(p)
}

func (s *SerialConnection) Close() error {
	return s.port.Close()
}

func (s *SerialConnection) SetReadTimeout(t time.Duration) error {
	return s.port.SetReadTimeout(t)
}

func (s *SerialConnection) ResetInputBuffer() error {
	return s.port.ResetInputBuffer()
}

// ErrConnectionClosed is returned when reading from a closed WebSocket connection
var ErrConnectionClosed = fmt.Errorf("websocket connection closed")

// WebSocketConnection wraps a WebSocket connection for byte-level reading.
//
// gorilla/websocket treats a read deadline as fatal to the connection, so
// messages are received by a pump goroutine and Read waits on a channel
// instead. Only binary messages carry sensor bytes.
type WebSocketConnection struct {
	conn *websocket.Conn

	messages chan []byte
	done     chan struct{} // closed when the pump exits
	closing  chan struct{}
	once     sync.Once

	mu          sync.Mutex
	err         error
	buf         []byte
	readTimeout time.Duration
}

func newWebSocketConnection(conn *websocket.Conn) *WebSocketConnection {
	w := &WebSocketConnection{
		conn:     conn,
		messages: make(chan []byte, 64),
		done:     make(chan struct{}),
		closing:  make(chan struct{}),
	}
	go w.pump()
	return w
}

func (w *WebSocketConnection) pump() {
	defer close(w.done)
	for {
		messageType, data, err := w.conn.ReadMessage()
		if err != nil {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			return
		}

		if messageType != websocket.BinaryMessage || len(data) == 0 {
			continue
		}

		select {
		case w.messages <- data:
		case <-w.closing:
			return
		}
	}
}

func (w *WebSocketConnection) Read(p []byte) (int, error) {
	w.mu.Lock()
	if len(w.buf) > 0 {
		n := copy(p, w.buf)
		w.buf = w.buf[n:]
		w.mu.Unlock()
		return n, nil
	}
	timeout := w.readTimeout
	w.mu.Unlock()

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case data := <-w.messages:
		return w.take(p, data), nil
	case <-w.done:
		// Hand out what the pump queued before it stopped
		select {
		case data := <-w.messages:
			return w.take(p, data), nil
		default:
		}
		return 0, ErrConnectionClosed
	case <-expired:
		return 0, nil
	}
}

func (w *WebSocketConnection) take(p, data []byte) int {
	n := copy(p, data)
	w.mu.Lock()
	w.buf = data[n:]
	w.mu.Unlock()
	return n
}

func (w *WebSocketConnection) Write(p []byte) (int, error) {
	err := w.conn.WriteMessage(websocket.BinaryMessage, p)
	if err != nil {
		return 0, err
	}
	return len(p), nil
}

// SetReadTimeout sets how long Read waits for a message; zero waits forever
func (w *WebSocketConnection) SetReadTimeout(t time.Duration) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.readTimeout = t
	return nil
}

// ResetInputBuffer drops received bytes that have not been read yet
func (w *WebSocketConnection) ResetInputBuffer() error {
	w.mu.Lock()
	w.buf = nil
	w.mu.Unlock()

	for {
		select {
		case <-w.messages:
		default:
			return nil
		}
	}
}

// Err returns the error that stopped the connection, if any
func (w *WebSocketConnection) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *WebSocketConnection) Close() error {
	w.once.Do(func() { close(w.closing) })
	return w.conn.Close()
}

// OpenSerialConnection opens a serial port connection (8N1)
func OpenSerialConnection(portName string, baudRate int) (Connection, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %v", portName, err)
	}

	return &SerialConnection{port: port}, nil
}

// OpenWebSocketConnection opens a WebSocket connection with HTTP Basic auth
func OpenWebSocketConnection(wsURL, username, password string, skipSSLVerify bool) (Connection, error) {
	u, err := url.Parse(wsURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %v", err)
	}

	switch u.Scheme {
	case "ws", "wss":
	default:
		return nil, fmt.Errorf("unsupported URL scheme: %s (use ws:// or wss://)", u.Scheme)
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}

	if u.Scheme == "wss" {
		dialer.TLSClientConfig = &tls.Config{
			InsecureSkipVerify: skipSSLVerify,
		}
	}

	headers := http.Header{}
	if username != "" && password != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(username + ":" + password))
		headers.Set("Authorization", "Basic "+credentials)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	conn, resp, err := dialer.DialContext(ctx, wsURL, headers)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("WebSocket connection failed (HTTP %d): %v", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("WebSocket connection failed: %v", err)
	}

	return newWebSocketConnection(conn), nil
}

// GetPassword retrieves password from environment or prompts user
func GetPassword() (string, error) {
	if pw := os.Getenv("SDSPROBE_PASSWORD"); pw != "" {
		return pw, nil
	}

	fmt.Fprint(os.Stderr, "Password: ")

	passwordBytes, err := term.ReadPassword(int(syscall.Stdin))
	if err != nil {
		// Not a terminal; read a plain line
		reader := bufio.NewReader(os.Stdin)
		password, err := reader.ReadString('\n')
		if err != nil {
			return "", fmt.Errorf("failed to read password: %v", err)
		}
		fmt.Fprintln(os.Stderr)
		return strings.TrimSpace(password), nil
	}

	fmt.Fprintln(os.Stderr)
	return string(passwordBytes), nil
}

// OpenConnection opens either a serial or WebSocket connection based on the
// loaded configuration
func OpenConnection() (Connection, string, error) {
	if ws := cfg.WebSocket; ws.URL != "" {
		password := ""
		if ws.Username != "" {
			var err error
			password, err = GetPassword()
			if err != nil {
				return nil, "", err
			}
		}

		conn, err := OpenWebSocketConnection(ws.URL, ws.Username, password, ws.NoSSLVerify)
		if err != nil {
			return nil, "", err
		}

		logger.Debug("websocket connected", zap.String("url", ws.URL))
		return conn, fmt.Sprintf("WebSocket: %s", ws.URL), nil
	}

	if s := cfg.Serial; s.Port != "" {
		conn, err := OpenSerialConnection(s.Port, s.Baud)
		if err != nil {
			return nil, "", err
		}

		logger.Debug("serial port open", zap.String("port", s.Port), zap.Int("baud", s.Baud))
		return conn, fmt.Sprintf("Serial: %s @ %d baud", s.Port, s.Baud), nil
	}

	return nil, "", fmt.Errorf("either --port or --url must be specified")
}
