package controlplane

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/crypto/blake2b"
)

// TokenSize is the length, in bytes, of one per-run control token.
const TokenSize = 32

// GenerateToken returns a fresh random control token for one compositor run.
func GenerateToken() ([]byte, error) {
	token := make([]byte, TokenSize)
	if _, err := rand.Read(token); err != nil {
		return nil, fmt.Errorf("generate control token: %w", err)
	}
	return token, nil
}

// TokenPath names the sibling file a socket's token is written to: the
// socket path with ".token" appended, so a client that can already resolve
// PINNACLE_GRPC_SOCKET can find its token without a second discovery walk.
func TokenPath(socketPath string) string {
	return socketPath + ".token"
}

// WriteTokenFile persists token to path, owner-only.
func WriteTokenFile(path string, token []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create token dir: %w", err)
	}
	if err := os.WriteFile(path, token, 0o600); err != nil {
		return fmt.Errorf("write token file: %w", err)
	}
	return nil
}

// ReadTokenFile reads back a token written by WriteTokenFile.
func ReadTokenFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token file: %w", err)
	}
	return data, nil
}

func tokenDigest(token []byte) [blake2b.Size256]byte {
	return blake2b.Sum256(token)
}

// VerifyHandshake reads the opening TokenSize*?-independent digest a client
// sends immediately after dialing and compares it, constant-time, against
// the server's own token digest. The unix socket's 0600 perms already
// restrict connections to the owning user; this adds a second,
// peer-credential-adjacent check using knowledge of the per-run token
// written to the socket's sibling .token file, since this control plane has
// no SO_PEERCRED-equivalent check in scope.
func VerifyHandshake(conn net.Conn, token []byte) error {
	want := tokenDigest(token)
	var got [blake2b.Size256]byte
	if _, err := io.ReadFull(conn, got[:]); err != nil {
		return fmt.Errorf("read handshake digest: %w", err)
	}
	if subtle.ConstantTimeCompare(want[:], got[:]) != 1 {
		return fmt.Errorf("control token mismatch")
	}
	return nil
}

// SendHandshake writes the client-side half of VerifyHandshake.
func SendHandshake(conn net.Conn, token []byte) error {
	digest := tokenDigest(token)
	_, err := conn.Write(digest[:])
	return err
}
