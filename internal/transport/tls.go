package transport

import "crypto/tls"

// TLSState captures the negotiated TLS session material plus whether a
// close_notify alert was observed. The close-notify flag matters because
// these protocols use a clean TLS shutdown as the implicit end-of-body
// marker when no length is given; a server that drops the connection
// abruptly may have sent a truncated document.
//
// The flag is written exactly once, by the connection's read funnel, and
// is read-only for everyone else.
type TLSState struct {
	version     string
	cipher      string
	peerCert    []byte
	closeNotify bool
}

func newTLSState(state tls.ConnectionState) *TLSState {
	s := &TLSState{
		version: tls.VersionName(state.Version),
		cipher:  tls.CipherSuiteName(state.CipherSuite),
	}
	if len(state.PeerCertificates) > 0 {
		s.peerCert = state.PeerCertificates[0].Raw
	}
	return s
}

func (s *TLSState) markCloseNotify() {
	s.closeNotify = true
}

// Version returns the negotiated protocol version, e.g. "TLS 1.3".
func (s *TLSState) Version() string { return s.version }

// Cipher returns the negotiated cipher suite name.
func (s *TLSState) Cipher() string { return s.cipher }

// PeerCert returns the raw DER bytes of the peer's leaf certificate.
func (s *TLSState) PeerCert() []byte { return s.peerCert }

// CloseNotifyReceived reports whether the peer shut the session down
// cleanly. Only meaningful once the body has been read to EOF.
func (s *TLSState) CloseNotifyReceived() bool { return s.closeNotify }
