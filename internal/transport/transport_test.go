package transport_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"errors"
	"io"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/scroll-gateway/internal/transport"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

// startServer runs fn against the first accepted connection.
func startServer(t *testing.T, fn func(net.Conn)) (host string, port int) {
	t.Helper()
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		fn(conn)
	}()

	return splitAddr(t, listener.Addr())
}

func splitAddr(t *testing.T, addr net.Addr) (string, int) {
	t.Helper()
	host, portStr, err := net.SplitHostPort(addr.String())
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	return host, port
}

// selfSignedConfig builds a throwaway server TLS config, mirroring the
// self-signed certificates the proxied ecosystems run on.
func selfSignedConfig(t *testing.T) *tls.Config {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "127.0.0.1"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}
	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	require.NoError(t, err)

	return &tls.Config{
		Certificates: []tls.Certificate{{
			Certificate: [][]byte{der},
			PrivateKey:  key,
		}},
	}
}

func startTLSServer(t *testing.T, fn func(*tls.Conn)) (host string, port int) {
	t.Helper()
	listener, err := tls.Listen("tcp", "127.0.0.1:0", selfSignedConfig(t))
	require.NoError(t, err)
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		fn(conn.(*tls.Conn))
	}()

	return splitAddr(t, listener.Addr())
}

func TestReadBodyUnderLimit(t *testing.T) {
	body := []byte("hello world")
	host, port := startServer(t, func(conn net.Conn) {
		conn.Write(body)
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	got, err := conn.ReadBody(1024)
	require.NoError(t, err)
	assert.Equal(t, body, got)
}

func TestReadBodyExactlyOneUnderLimit(t *testing.T) {
	body := make([]byte, 1023)
	host, port := startServer(t, func(conn net.Conn) {
		conn.Write(body)
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	got, err := conn.ReadBody(1024)
	require.NoError(t, err)
	assert.Len(t, got, 1023)
}

func TestReadBodyTooLargeKeepsConnectionOpen(t *testing.T) {
	first := make([]byte, 1024)
	for i := range first {
		first[i] = byte(i % 251)
	}
	rest := []byte("the remainder")
	release := make(chan struct{})

	host, port := startServer(t, func(conn net.Conn) {
		conn.Write(first)
		<-release
		conn.Write(rest)
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	_, err := conn.ReadBody(1024)
	var tooLarge *transport.TooLargeError
	require.ErrorAs(t, err, &tooLarge)
	assert.Equal(t, first, tooLarge.Partial)

	// The connection must still be usable for streaming the remainder.
	close(release)
	got, readErr := io.ReadAll(conn.BodyStream())
	require.NoError(t, readErr)
	assert.Equal(t, rest, got)
}

func TestBodyStreamEarlyCloseIsIdempotent(t *testing.T) {
	host, port := startServer(t, func(conn net.Conn) {
		conn.Write([]byte("data"))
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	stream := conn.BodyStream()
	require.NoError(t, stream.Close())
	require.NoError(t, stream.Close())

	_, err := stream.Read(make([]byte, 4))
	assert.ErrorIs(t, err, io.EOF)
}

func TestDialRefused(t *testing.T) {
	// Grab a port and close the listener so nothing is listening on it.
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port := splitAddr(t, listener.Addr())
	listener.Close()

	dialer := transport.NewDialer(time.Second, testLogger())
	_, dialErr := dialer.Dial(context.Background(), host, port)
	require.NotNil(t, dialErr)
	assert.True(t, errors.Is(dialErr, &transport.ConnectError{}))
}

func TestDialTLSCloseNotify(t *testing.T) {
	body := []byte("20 text/plain\r\nhello")
	host, port := startTLSServer(t, func(conn *tls.Conn) {
		conn.Write(body)
		// CloseWrite sends the close_notify alert without tearing the
		// transport down abruptly.
		conn.CloseWrite()
		time.Sleep(100 * time.Millisecond)
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.DialTLS(context.Background(), host, port)
	require.Nil(t, dialErr)

	state := conn.TLS()
	require.NotNil(t, state)
	assert.NotEmpty(t, state.Version())
	assert.NotEmpty(t, state.Cipher())
	assert.NotEmpty(t, state.PeerCert())
	assert.False(t, state.CloseNotifyReceived())

	got, err := conn.ReadBody(1024)
	require.NoError(t, err)
	assert.Equal(t, body, got)
	assert.True(t, state.CloseNotifyReceived())
}

func TestDialTLSAbruptClose(t *testing.T) {
	host, port := startTLSServer(t, func(conn *tls.Conn) {
		conn.Write([]byte("hello"))
		// Kill the transport without sending close_notify.
		conn.NetConn().Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.DialTLS(context.Background(), host, port)
	require.Nil(t, dialErr)

	conn.ReadBody(1024)
	assert.False(t, conn.TLS().CloseNotifyReceived())
}

func TestReadLine(t *testing.T) {
	host, port := startServer(t, func(conn net.Conn) {
		conn.Write([]byte("20 text/gemini\r\nbody follows"))
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	line, err := conn.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "20 text/gemini", line)
}

func TestReadLineTruncated(t *testing.T) {
	host, port := startServer(t, func(conn net.Conn) {
		conn.Write([]byte("20 text/gem"))
		conn.Close()
	})

	dialer := transport.NewDialer(time.Second, testLogger())
	conn, dialErr := dialer.Dial(context.Background(), host, port)
	require.Nil(t, dialErr)

	_, err := conn.ReadLine()
	assert.Error(t, err)
}
