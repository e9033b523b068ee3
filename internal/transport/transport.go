package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

/*
Responsibilities

- Open TCP and TLS connections with a bounded connect time
- Expose negotiated TLS material (version, cipher, peer certificate)
- Track whether the peer ended a TLS session with close_notify
- Provide bounded and streaming body reads

The transport never interprets protocol bytes; it only moves them.
*/

// Chunk size for streaming bodies, taken from the twisted FileSender class.
const ChunkSize = 1 << 14

// When not streaming, limit the maximum response size to avoid running
// out of RAM when converting large files to HTML.
const DefaultMaxBodySize = 1 << 20

// Time waiting to establish a connection before aborting.
const DefaultConnectTimeout = 10 * time.Second

type Dialer struct {
	connectTimeout time.Duration
	log            zerolog.Logger
}

func NewDialer(connectTimeout time.Duration, log zerolog.Logger) Dialer {
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}
	return Dialer{
		connectTimeout: connectTimeout,
		log:            log,
	}
}

// Dial opens a plaintext TCP connection to host:port.
func (d *Dialer) Dial(ctx context.Context, host string, port int) (*Conn, *ConnectError) {
	netConn, err := d.dialTCP(ctx, host, port)
	if err != nil {
		return nil, err
	}
	return newConn(netConn, nil, d.log), nil
}

// DialTLS opens a TLS connection to host:port. Certificate verification
// is disabled: the proxied ecosystems use self-signed certificates and
// trust-on-first-use, so there is no CA chain to verify against.
func (d *Dialer) DialTLS(ctx context.Context, host string, port int) (*Conn, *ConnectError) {
	netConn, dialErr := d.dialTCP(ctx, host, port)
	if dialErr != nil {
		return nil, dialErr
	}

	tlsConn := tls.Client(netConn, &tls.Config{
		ServerName:         host,
		InsecureSkipVerify: true,
	})

	handshakeCtx, cancel := context.WithTimeout(ctx, d.connectTimeout)
	defer cancel()
	if err := tlsConn.HandshakeContext(handshakeCtx); err != nil {
		netConn.Close()
		return nil, &ConnectError{
			Host:      host,
			Message:   err.Error(),
			Retryable: false,
			Cause:     ErrCauseTLS,
		}
	}

	state := newTLSState(tlsConn.ConnectionState())
	d.log.Debug().
		Str("host", host).
		Str("tls_version", state.Version()).
		Str("tls_cipher", state.Cipher()).
		Msg("TLS handshake complete")

	return newConn(tlsConn, state, d.log), nil
}

func (d *Dialer) dialTCP(ctx context.Context, host string, port int) (net.Conn, *ConnectError) {
	dialer := net.Dialer{Timeout: d.connectTimeout}
	netConn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return nil, classifyDialError(host, err)
	}
	return netConn, nil
}

func classifyDialError(host string, err error) *ConnectError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return &ConnectError{
			Host:      host,
			Message:   fmt.Sprintf("unable to resolve host %q", host),
			Retryable: false,
			Cause:     ErrCauseDNS,
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ConnectError{
			Host:      host,
			Message:   "timeout establishing connection with server",
			Retryable: true,
			Cause:     ErrCauseTimeout,
		}
	}

	return &ConnectError{
		Host:      host,
		Message:   err.Error(),
		Retryable: true,
		Cause:     ErrCauseRefused,
	}
}

// Conn is one live connection to a proxied server. It is owned by a
// single response and never shared or reused across requests.
type Conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	tls     *TLSState
	log     zerolog.Logger
	closed  bool
}

func newConn(netConn net.Conn, state *TLSState, log zerolog.Logger) *Conn {
	c := &Conn{
		netConn: netConn,
		tls:     state,
		log:     log,
	}
	c.reader = bufio.NewReader(readerFunc(c.read))
	return c
}

// read is the single funnel for inbound bytes. A clean io.EOF from a TLS
// connection means crypto/tls saw a close_notify alert; an abrupt close
// surfaces as io.ErrUnexpectedEOF or a net error instead.
func (c *Conn) read(p []byte) (int, error) {
	n, err := c.netConn.Read(p)
	if err == io.EOF && c.tls != nil {
		c.tls.markCloseNotify()
		c.log.Debug().Msg("close_notify received")
	}
	return n, err
}

// TLS returns the negotiated TLS material, nil for plaintext connections.
func (c *Conn) TLS() *TLSState {
	return c.tls
}

// PeerAddress returns the remote address the connection resolved to.
func (c *Conn) PeerAddress() string {
	if addr := c.netConn.RemoteAddr(); addr != nil {
		if host, _, err := net.SplitHostPort(addr.String()); err == nil {
			return host
		}
		return addr.String()
	}
	return ""
}

// Write sends request bytes to the peer.
func (c *Conn) Write(p []byte) (int, error) {
	return c.netConn.Write(p)
}

// ReadLine reads one header line, tolerating LF or CRLF endings.
// An EOF before the line terminator is an error: a truncated header must
// not silently succeed as an empty one.
func (c *Conn) ReadLine() (string, error) {
	line, err := c.reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("reading header line: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Close tears the connection down. Failures are logged and swallowed:
// closing a socket the peer already shut via close_notify is expected,
// not exceptional.
func (c *Conn) Close() {
	if c.closed {
		return
	}
	c.closed = true
	if err := c.netConn.Close(); err != nil {
		c.log.Warn().Err(err).Msg("error closing socket")
	}
}

// readerFunc adapts the Conn read funnel to io.Reader for bufio.
type readerFunc func([]byte) (int, error)

func (f readerFunc) Read(p []byte) (int, error) { return f(p) }
