package protocols_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"math/big"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rohmanhakim/scroll-gateway/internal/metadata"
	"github.com/rohmanhakim/scroll-gateway/internal/policy"
	"github.com/rohmanhakim/scroll-gateway/internal/protocols"
	"github.com/rohmanhakim/scroll-gateway/internal/transport"
	"github.com/rohmanhakim/scroll-gateway/internal/urlref"
	"github.com/rohmanhakim/scroll-gateway/pkg/limiter"
	"github.com/rohmanhakim/scroll-gateway/pkg/retry"
	"github.com/rohmanhakim/scroll-gateway/pkg/timeutil"
)

// startServer runs fn against the first accepted connection and returns
// the listen port.
func startServer(t *testing.T, fn func(net.Conn)) int {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

func startTLSServer(t *testing.T, fn func(net.Conn)) int {
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

	cert := tls.Certificate{
		Certificate: [][]byte{der},
		PrivateKey:  key,
	}

	ln, err := tls.Listen("tcp", "127.0.0.1:0", &tls.Config{
		Certificates: []tls.Certificate{cert},
	})
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		fn(conn)
	}()

	return ln.Addr().(*net.TCPAddr).Port
}

// newTestClient builds a client whose policy admits exactly the given
// port, with retries disabled.
func newTestClient(t *testing.T, port int) (*protocols.Client, *limiter.ConcurrentRateLimiter) {
	t.Helper()

	checker, err := policy.NewChecker(policy.DefaultBlockedHosts, map[int]struct{}{port: {}})
	require.NoError(t, err)

	rateLimiter := limiter.NewConcurrentRateLimiter()
	recorder := metadata.NewRecorder(zerolog.Nop())
	retryParam := retry.NewRetryParam(
		0,
		0,
		1,
		1,
		timeutil.NewBackoffParam(time.Millisecond, 2.0, time.Millisecond),
	)

	client := protocols.NewClient(
		transport.NewDialer(2*time.Second, zerolog.Nop()),
		checker,
		rateLimiter,
		retryParam,
		&recorder,
		zerolog.Nop(),
		transport.DefaultMaxBodySize,
		"UTF-8",
	)
	return &client, rateLimiter
}

func readRequestLine(conn net.Conn) string {
	buf := make([]byte, 4096)
	n, _ := conn.Read(buf)
	return string(buf[:n])
}

func TestParseResponseHeader(t *testing.T) {
	for _, tc := range []struct {
		header string
		status string
		meta   string
	}{
		{"20 text/gemini; charset=utf-8", "20", "text/gemini; charset=utf-8"},
		{"51 not found\r\n", "51", "not found"},
		{"20", "20", ""},
		{"20\ttext/plain", "20", "text/plain"},
		{"  20   text/plain  ", "20", "text/plain"},
	} {
		status, meta := protocols.ParseResponseHeader(tc.header)
		assert.Equal(t, tc.status, status, tc.header)
		assert.Equal(t, tc.meta, meta, tc.header)
	}
}

func TestParseMeta(t *testing.T) {
	mimetype, params := protocols.ParseMeta("text/gemini")
	assert.Equal(t, "text/gemini", mimetype)
	assert.Empty(t, params)

	mimetype, params = protocols.ParseMeta("text/gemini; charset=UTF-8; Lang=en")
	assert.Equal(t, "text/gemini", mimetype)
	assert.Equal(t, "UTF-8", params["charset"])
	assert.Equal(t, "en", params["lang"])
}

func TestParseMetaFirstParamWins(t *testing.T) {
	_, params := protocols.ParseMeta("text/gemini; charset=UTF-8; charset=latin-1")
	assert.Equal(t, "UTF-8", params["charset"])
}

func TestParseMetaMalformedParamDropped(t *testing.T) {
	mimetype, params := protocols.ParseMeta("text/plain; notakeyvalue; lang=en")
	assert.Equal(t, "text/plain", mimetype)
	assert.Equal(t, map[string]string{"lang": "en"}, params)
}

func TestNewRequestUnsupportedScheme(t *testing.T) {
	client, _ := newTestClient(t, 1965)

	_, err := client.NewRequest(urlref.MustParse("https://mozz.us/"), protocols.Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported URL scheme")
}

func TestNewRequestBlockedHost(t *testing.T) {
	checker, err := policy.NewChecker(policy.DefaultBlockedHosts, policy.DefaultAllowedPorts())
	require.NoError(t, err)

	recorder := metadata.NewRecorder(zerolog.Nop())
	client := protocols.NewClient(
		transport.NewDialer(time.Second, zerolog.Nop()),
		checker,
		limiter.NewConcurrentRateLimiter(),
		retry.NewRetryParam(0, 0, 1, 1, timeutil.NewBackoffParam(time.Millisecond, 2.0, time.Millisecond)),
		&recorder,
		zerolog.Nop(),
		0,
		"UTF-8",
	)

	_, reqErr := client.NewRequest(urlref.MustParse("gemini://vger.cloud/hello"), protocols.Options{})
	require.Error(t, reqErr)

	_, reqErr = client.NewRequest(urlref.MustParse("gemini://mozz.us:22/"), protocols.Options{})
	require.Error(t, reqErr)

	_, reqErr = client.NewRequest(urlref.MustParse("gemini://mozz.us/"), protocols.Options{})
	require.NoError(t, reqErr)
}

func TestFetchTxt(t *testing.T) {
	requestLine := make(chan string, 1)
	port := startServer(t, func(conn net.Conn) {
		requestLine <- readRequestLine(conn)
		conn.Write([]byte("20 text/plain\r\nhello from txt\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("text://127.0.0.1:" + strconv.Itoa(port) + "/hello")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "20", resp.Status())
	assert.Equal(t, "20 (OK)", resp.StatusDisplay())
	assert.Equal(t, "text/plain", resp.Mimetype())
	assert.Equal(t, "UTF-8", resp.Charset())

	body, bodyErr := resp.GetBody()
	require.NoError(t, bodyErr)
	assert.Equal(t, "hello from txt\n", string(body))

	assert.Equal(t, url.String()+"\r\n", <-requestLine)
}

func TestFetchScroll(t *testing.T) {
	requestLine := make(chan string, 1)
	port := startTLSServer(t, func(conn net.Conn) {
		requestLine <- readRequestLine(conn)
		conn.Write([]byte("24 text/scroll; charset=utf-8; lang=en\r\n"))
		conn.Write([]byte("A. Nonymous\r\n"))
		conn.Write([]byte("2023-01-15T08:30:00Z\r\n"))
		conn.Write([]byte("\r\n"))
		conn.Write([]byte("# Hello\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("scroll://127.0.0.1:" + strconv.Itoa(port) + "/doc.scroll")

	req, err := client.NewRequest(url, protocols.Options{Lang: "de"})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "24", resp.Status())
	assert.Equal(t, "24 (Default, Unclassified)", resp.StatusDisplay())
	assert.Equal(t, "text/scroll", resp.Mimetype())
	assert.Equal(t, "utf-8", resp.Charset())
	assert.Equal(t, "en", resp.Lang())
	assert.NotNil(t, resp.TLS())

	require.NotNil(t, resp.DocMeta())
	assert.Equal(t, "A. Nonymous", resp.DocMeta().Author())
	require.NotNil(t, resp.DocMeta().PublishDate())
	assert.Equal(t,
		time.Date(2023, 1, 15, 8, 30, 0, 0, time.UTC),
		resp.DocMeta().PublishDate().UTC(),
	)
	assert.Nil(t, resp.DocMeta().ModificationDate())

	body, bodyErr := resp.GetBody()
	require.NoError(t, bodyErr)
	assert.Equal(t, "# Hello\n", string(body))

	assert.Equal(t, url.String()+" de,en\r\n", <-requestLine)
}

func TestFetchScrollTruncatedMetadata(t *testing.T) {
	port := startTLSServer(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("20 text/scroll\r\n"))
		conn.Write([]byte("A. Nonymous\r\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("scroll://127.0.0.1:" + strconv.Itoa(port) + "/doc.scroll")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "20", resp.Status())
	require.NotNil(t, resp.DocMeta())
	assert.Equal(t, "A. Nonymous", resp.DocMeta().Author())
	assert.Nil(t, resp.DocMeta().PublishDate())
	assert.Nil(t, resp.DocMeta().ModificationDate())

	body, bodyErr := resp.GetBody()
	require.NoError(t, bodyErr)
	assert.Empty(t, body)
}

func TestFetchScrollMetaRequest(t *testing.T) {
	requestLine := make(chan string, 1)
	port := startTLSServer(t, func(conn net.Conn) {
		requestLine <- readRequestLine(conn)
		conn.Write([]byte("51 not found\r\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("scroll://127.0.0.1:" + strconv.Itoa(port) + "/doc.scroll")

	req, err := client.NewRequest(url, protocols.Options{Meta: true})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "51", resp.Status())
	assert.Equal(t, "51 (NOT FOUND)", resp.StatusDisplay())
	assert.Empty(t, resp.Mimetype())
	assert.Nil(t, resp.DocMeta())

	assert.Equal(t, url.String()+" +en\r\n", <-requestLine)
}

func TestFetchSpartan(t *testing.T) {
	request := make(chan string, 1)
	port := startServer(t, func(conn net.Conn) {
		request <- readRequestLine(conn)
		conn.Write([]byte("2 text/gemini\r\nyou said: hello world"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("spartan://127.0.0.1:" + strconv.Itoa(port) + "/echo?hello%20world")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "2", resp.Status())
	assert.Equal(t, "2 (SUCCESS)", resp.StatusDisplay())
	assert.Equal(t, "text/gemini", resp.Mimetype())

	assert.Equal(t, "127.0.0.1 /echo 11\r\nhello world", <-request)
}

func TestFetchGopherMenu(t *testing.T) {
	request := make(chan string, 1)
	port := startServer(t, func(conn net.Conn) {
		request <- readRequestLine(conn)
		conn.Write([]byte("1Floodgap Home\t/home\tgopher.floodgap.com\t70\r\n.\r\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("gopher://127.0.0.1:" + strconv.Itoa(port) + "/")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "20", resp.Status())
	assert.Equal(t, "application/gopher-menu", resp.Mimetype())
	assert.Equal(t, "\r\n", <-request)
}

func TestFetchFinger(t *testing.T) {
	request := make(chan string, 1)
	port := startServer(t, func(conn net.Conn) {
		request <- readRequestLine(conn)
		conn.Write([]byte("Login: michael\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("finger://127.0.0.1:" + strconv.Itoa(port) + "/michael")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "20", resp.Status())
	assert.Equal(t, "text/plain", resp.Mimetype())
	assert.Equal(t, "michael\r\n", <-request)

	body, bodyErr := resp.GetBody()
	require.NoError(t, bodyErr)
	assert.Equal(t, "Login: michael\n", string(body))
}

func TestFetchNexListing(t *testing.T) {
	port := startServer(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("=> /docs/ Documentation\n"))
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("nex://127.0.0.1:" + strconv.Itoa(port) + "/")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, "application/nex", resp.Mimetype())
}

func TestFetchSlowDownRaisesDelay(t *testing.T) {
	port := startServer(t, func(conn net.Conn) {
		readRequestLine(conn)
		conn.Write([]byte("44 slow down\r\n"))
	})

	client, rateLimiter := newTestClient(t, port)
	url := urlref.MustParse("text://127.0.0.1:" + strconv.Itoa(port) + "/")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	resp, err := client.Fetch(context.Background(), req)
	require.NoError(t, err)
	defer resp.Close()

	assert.Equal(t, "44", resp.Status())
	assert.Greater(t, rateLimiter.ResolveDelay("127.0.0.1"), time.Duration(0))
}

func TestFetchMalformedHeader(t *testing.T) {
	port := startServer(t, func(conn net.Conn) {
		readRequestLine(conn)
		// close without sending a header line
	})

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("text://127.0.0.1:" + strconv.Itoa(port) + "/")

	req, err := client.NewRequest(url, protocols.Options{})
	require.NoError(t, err)

	_, fetchErr := client.Fetch(context.Background(), req)
	require.Error(t, fetchErr)
	assert.Contains(t, fetchErr.Error(), "malformed response header")
}

func TestFetchConnectionRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	client, _ := newTestClient(t, port)
	url := urlref.MustParse("text://127.0.0.1:" + strconv.Itoa(port) + "/")

	req, reqErr := client.NewRequest(url, protocols.Options{})
	require.NoError(t, reqErr)

	_, fetchErr := client.Fetch(context.Background(), req)
	require.Error(t, fetchErr)
	assert.Contains(t, fetchErr.Error(), "unable to reach host")
}
