// Package tlstest mints throwaway certificate chains for console transport
// tests. Everything lands in the caller's temp dir as PEM files so the
// transport config can point at them the same way production configs do.
package tlstest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// CA is a single-test certificate authority.
type CA struct {
	cert *x509.Certificate
	key  *ecdsa.PrivateKey
	file string
}

func NewCA(t testing.TB, dir string) *CA {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate ca key: %v", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "rconduit test ca"},
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
	}
	der, err := x509.CreateCertificate(rand.Reader, template, template, &key.PublicKey, key)
	if err != nil {
		t.Fatalf("create ca cert: %v", err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		t.Fatalf("parse ca cert: %v", err)
	}
	return &CA{
		cert: cert,
		key:  key,
		file: writePEM(t, filepath.Join(dir, "ca.pem"), "CERTIFICATE", der),
	}
}

// File returns the path of the CA bundle on disk.
func (ca *CA) File() string {
	return ca.file
}

// ServerPair issues a leaf valid for host, which may be a DNS name or an IP
// literal. Returns cert and key file paths.
func (ca *CA) ServerPair(t testing.TB, dir, host string) (string, string) {
	t.Helper()
	return ca.issue(t, dir, "server", host, x509.ExtKeyUsageServerAuth)
}

// ClientPair issues a leaf for mutual TLS clients.
func (ca *CA) ClientPair(t testing.TB, dir, name string) (string, string) {
	t.Helper()
	return ca.issue(t, dir, name, "", x509.ExtKeyUsageClientAuth)
}

// ServerTLS builds a listener-side tls.Config from a fresh server pair.
// With mutual set, it also demands a client certificate signed by this CA.
func (ca *CA) ServerTLS(t testing.TB, dir, host string, mutual bool) *tls.Config {
	t.Helper()

	certFile, keyFile := ca.ServerPair(t, dir, host)
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		t.Fatalf("load server keypair: %v", err)
	}
	cfg := &tls.Config{
		MinVersion:   tls.VersionTLS12,
		Certificates: []tls.Certificate{cert},
	}
	if mutual {
		caPEM, err := os.ReadFile(ca.file)
		if err != nil {
			t.Fatalf("read ca bundle: %v", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(caPEM) {
			t.Fatalf("parse ca bundle: %s", ca.file)
		}
		cfg.ClientCAs = pool
		cfg.ClientAuth = tls.RequireAndVerifyClientCert
	}
	return cfg
}

func (ca *CA) issue(t testing.TB, dir, name, host string, usage x509.ExtKeyUsage) (string, string) {
	t.Helper()

	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("generate leaf key: %v", err)
	}
	now := time.Now()
	template := &x509.Certificate{
		SerialNumber: big.NewInt(now.UnixNano()),
		Subject:      pkix.Name{CommonName: name},
		NotBefore:    now.Add(-time.Hour),
		NotAfter:     now.Add(24 * time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{usage},
	}
	if host != "" {
		if ip := net.ParseIP(host); ip != nil {
			template.IPAddresses = []net.IP{ip}
		} else {
			template.DNSNames = []string{host}
		}
	}
	der, err := x509.CreateCertificate(rand.Reader, template, ca.cert, &key.PublicKey, ca.key)
	if err != nil {
		t.Fatalf("create leaf cert: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(key)
	if err != nil {
		t.Fatalf("marshal leaf key: %v", err)
	}

	certFile := writePEM(t, filepath.Join(dir, name+".pem"), "CERTIFICATE", der)
	keyFile := writePEM(t, filepath.Join(dir, name+".key"), "EC PRIVATE KEY", keyDER)
	return certFile, keyFile
}

func writePEM(t testing.TB, path, blockType string, der []byte) string {
	t.Helper()
	data := pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
