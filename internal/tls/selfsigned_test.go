package tls

import (
	"crypto/tls"
	"crypto/x509"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paths(t *testing.T) (string, string) {
	dir := t.TempDir()
	return filepath.Join(dir, "cert.pem"), filepath.Join(dir, "key.pem")
}

func TestGenerateSelfSignedCert(t *testing.T) {
	certPath, keyPath := paths(t)
	now := time.Now()
	require.NoError(t, GenerateSelfSignedCert(certPath, keyPath, []string{"localhost", "127.0.0.1"}, now))

	pair, err := tls.LoadX509KeyPair(certPath, keyPath)
	require.NoError(t, err)
	cert, err := x509.ParseCertificate(pair.Certificate[0])
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost"}, cert.DNSNames)
	require.Len(t, cert.IPAddresses, 1)
	assert.Equal(t, "127.0.0.1", cert.IPAddresses[0].String())
	assert.WithinDuration(t, now.Add(Validity), cert.NotAfter, time.Second)

	info, err := os.Stat(keyPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestEnsureSelfSignedCert(t *testing.T) {
	certPath, keyPath := paths(t)
	hosts := []string{"localhost"}
	now := time.Now()

	generated, err := EnsureSelfSignedCert(certPath, keyPath, hosts, now)
	require.NoError(t, err)
	assert.True(t, generated)

	generated, err = EnsureSelfSignedCert(certPath, keyPath, hosts, now)
	require.NoError(t, err)
	assert.False(t, generated, "a valid pair is reused")

	generated, err = EnsureSelfSignedCert(certPath, keyPath, []string{"localhost", "agentflow.test"}, now)
	require.NoError(t, err)
	assert.True(t, generated, "a new host needs a new certificate")

	generated, err = EnsureSelfSignedCert(certPath, keyPath, hosts, now.Add(Validity))
	require.NoError(t, err)
	assert.True(t, generated, "an expiring certificate is replaced")

	require.NoError(t, os.WriteFile(certPath, []byte("garbage"), 0o644))
	generated, err = EnsureSelfSignedCert(certPath, keyPath, hosts, now)
	require.NoError(t, err)
	assert.True(t, generated)
}
