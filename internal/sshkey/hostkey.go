package sshkey

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/pem"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/workspace-dev/workspace/internal/fsutil"
)

// EnsureHostKey makes sure an ED25519 key pair with an empty passphrase
// exists at keyPath (private) and keyPath+".pub" (public). Existing pairs
// are left alone.
func EnsureHostKey(keyPath string) error {
	pubPath := keyPath + ".pub"
	if fsutil.PathExists(keyPath) && fsutil.PathExists(pubPath) {
		return nil
	}

	if err := fsutil.EnsureDir(filepath.Dir(keyPath)); err != nil {
		return err
	}

	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("generating ed25519 key: %w", err)
	}

	block, err := ssh.MarshalPrivateKey(priv, "workspace")
	if err != nil {
		return fmt.Errorf("marshaling private key: %w", err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0o600); err != nil {
		return fmt.Errorf("writing %s: %w", keyPath, err)
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		return fmt.Errorf("encoding public key: %w", err)
	}
	pubLine := strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub))) + " workspace\n"
	if err := os.WriteFile(pubPath, []byte(pubLine), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", pubPath, err)
	}
	return nil
}

// ReadPublicKey returns the single-line public key for keyPath, for
// injection into the container as SSH_PUBLIC_KEY.
func ReadPublicKey(keyPath string) (string, error) {
	data, err := os.ReadFile(keyPath + ".pub")
	if err != nil {
		return "", fmt.Errorf("reading public key: %w", err)
	}
	return strings.TrimSpace(string(data)), nil
}
