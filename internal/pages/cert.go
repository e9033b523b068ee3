package pages

import (
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"strings"
	"time"

	"github.com/rohmanhakim/scroll-gateway/pkg/hashutil"
)

// CertDescription is the human-readable summary of a peer certificate
// shown on the TLS context page.
type CertDescription struct {
	Subject            string
	Issuer             string
	SerialNumber       string
	NotBefore          time.Time
	NotAfter           time.Time
	Expired            bool
	DNSNames           []string
	PublicKeyAlgorithm string
	PublicKeySize      int
	SignatureAlgorithm string
	SHA256Fingerprint  string
}

// DescribeCert parses raw DER certificate bytes into a display summary.
func DescribeCert(der []byte) (*CertDescription, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return nil, fmt.Errorf("unable to parse peer certificate: %w", err)
	}

	fingerprint, err := hashutil.Fingerprint(der, hashutil.HashAlgoSHA256)
	if err != nil {
		return nil, err
	}

	return &CertDescription{
		Subject:            cert.Subject.String(),
		Issuer:             cert.Issuer.String(),
		SerialNumber:       strings.ToUpper(cert.SerialNumber.Text(16)),
		NotBefore:          cert.NotBefore,
		NotAfter:           cert.NotAfter,
		Expired:            time.Now().After(cert.NotAfter),
		DNSNames:           cert.DNSNames,
		PublicKeyAlgorithm: cert.PublicKeyAlgorithm.String(),
		PublicKeySize:      publicKeyBits(cert),
		SignatureAlgorithm: cert.SignatureAlgorithm.String(),
		SHA256Fingerprint:  fingerprint,
	}, nil
}

func publicKeyBits(cert *x509.Certificate) int {
	switch key := cert.PublicKey.(type) {
	case *rsa.PublicKey:
		return key.N.BitLen()
	case *ecdsa.PublicKey:
		return key.Curve.Params().BitSize
	case ed25519.PublicKey:
		return len(key) * 8
	}
	return 0
}
