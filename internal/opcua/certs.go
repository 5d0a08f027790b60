package opcua

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"
)

// loadOrGenerateCert reuses a previously generated server certificate/key
// pair from cfg.CertDir if present, otherwise generates and persists a new
// self-signed one. gopcua's exported API has no certificate-generation
// helper, so this uses crypto/x509 directly.
func loadOrGenerateCert(cfg Config) (certPEM, keyPEM []byte, err error) {
	dir := cfg.CertDir
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, "modgate", "certs")
		} else {
			dir = filepath.Join(os.TempDir(), "modgate-certs")
		}
	}
	certPath := filepath.Join(dir, "server_certificate.der")
	keyPath := filepath.Join(dir, "server_private_key.pem")

	if cert, key, ok := readExisting(certPath, keyPath); ok {
		return cert, key, nil
	}

	certDER, keyPEM, err := generateSelfSigned(cfg)
	if err != nil {
		return nil, nil, err
	}

	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, nil, fmt.Errorf("create cert dir: %w", err)
	}
	if err := os.WriteFile(certPath, certDER, 0o644); err != nil {
		return nil, nil, fmt.Errorf("write cert: %w", err)
	}
	if err := os.WriteFile(keyPath, keyPEM, 0o600); err != nil {
		return nil, nil, fmt.Errorf("write key: %w", err)
	}

	return certDER, keyPEM, nil
}

func readExisting(certPath, keyPath string) (cert, key []byte, ok bool) {
	c, err1 := os.ReadFile(certPath)
	k, err2 := os.ReadFile(keyPath)
	if err1 != nil || err2 != nil {
		return nil, nil, false
	}
	return c, k, true
}

func generateSelfSigned(cfg Config) (certDER, keyPEM []byte, err error) {
	validityDays := cfg.CertValidityDays
	if validityDays <= 0 {
		validityDays = 365
	}

	priv, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	appURI := fmt.Sprintf("urn:%s:server", cfg.AppName)
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: cfg.AppName},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().AddDate(0, 0, validityDays),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment | x509.KeyUsageCertSign,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth, x509.ExtKeyUsageClientAuth},
		DNSNames:     []string{"localhost", hostnameOrEmpty()},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1"), net.ParseIP(cfg.Host)},
		URIs:         parseURIs(appURI),
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(priv)})
	return der, keyPEM, nil
}

func parseURIs(raw string) []*url.URL {
	u, err := url.Parse(raw)
	if err != nil {
		return nil
	}
	return []*url.URL{u}
}

func hostnameOrEmpty() string {
	h, err := os.Hostname()
	if err != nil {
		return ""
	}
	return h
}
