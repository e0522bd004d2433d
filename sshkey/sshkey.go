// Package sshkey manages SSH key pairs in an ~/.ssh style directory. Keys
// are generated in process, the private half as an unencrypted OpenSSH PEM
// and the public half as an authorized_keys line.
package sshkey

import (
	"crypto"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/rsa"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/ssh"

	"github.com/KhanhRomVN/termi-tool/applog"
)

// Supported key types.
const (
	TypeED25519 = "ed25519"
	TypeRSA     = "rsa"
)

const rsaBits = 3072

var (
	// ErrKeyExists reports a name collision with an existing key file.
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotFound reports a key name with no files behind it.
	ErrKeyNotFound = errors.New("key not found")
)

// Key describes one key pair, read from its public half.
type Key struct {
	Name    string
	Type    string
	Comment string
}

// Manager owns one key directory.
type Manager struct {
	Dir string
}

// NewManager opens the key directory, creating it with mode 0700 if needed.
// An empty dir falls back to ~/.ssh.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory: %v", err)
		}
		dir = filepath.Join(home, ".ssh")
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}
	if err := os.Chmod(dir, 0700); err != nil {
		return nil, err
	}
	return &Manager{Dir: dir}, nil
}

// Generate creates a new key pair and returns the private key path. The
// private key file gets mode 0600, the public one 0644. An empty keyType
// falls back to ed25519. Existing keys are never overwritten.
func (m *Manager) Generate(name, keyType, comment string) (string, error) {
	if name == "" {
		return "", errors.New("key name is empty")
	}
	keyPath := filepath.Join(m.Dir, name)
	if _, err := os.Stat(keyPath); err == nil {
		return "", fmt.Errorf("%w: %q", ErrKeyExists, name)
	}

	var priv crypto.PrivateKey
	var pub crypto.PublicKey
	switch keyType {
	case TypeED25519, "":
		keyType = TypeED25519
		public, private, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return "", fmt.Errorf("failed to generate ed25519 key: %v", err)
		}
		priv, pub = private, public
	case TypeRSA:
		private, err := rsa.GenerateKey(rand.Reader, rsaBits)
		if err != nil {
			return "", fmt.Errorf("failed to generate RSA key: %v", err)
		}
		priv, pub = private, &private.PublicKey
	default:
		return "", fmt.Errorf("unsupported key type %q", keyType)
	}

	block, err := ssh.MarshalPrivateKey(priv, comment)
	if err != nil {
		return "", fmt.Errorf("failed to encode private key: %v", err)
	}
	if err := os.WriteFile(keyPath, pem.EncodeToMemory(block), 0600); err != nil {
		return "", err
	}

	sshPub, err := ssh.NewPublicKey(pub)
	if err != nil {
		os.Remove(keyPath)
		return "", fmt.Errorf("failed to encode public key: %v", err)
	}
	line := strings.TrimRight(string(ssh.MarshalAuthorizedKey(sshPub)), "\n")
	if comment != "" {
		line += " " + comment
	}
	if err := os.WriteFile(keyPath+".pub", []byte(line+"\n"), 0644); err != nil {
		os.Remove(keyPath)
		return "", err
	}

	applog.Info(applog.Fields{
		"name": name,
		"type": keyType,
	}, "SSH key pair generated")

	return keyPath, nil
}

// PublicKey returns the authorized_keys line of a key.
func (m *Manager) PublicKey(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(m.Dir, name+".pub"))
	if errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// List reads all key pairs in the directory from their .pub files. Files
// that do not parse as authorized_keys lines are skipped.
func (m *Manager) List() ([]Key, error) {
	entries, err := os.ReadDir(m.Dir)
	if err != nil {
		return nil, err
	}

	var keys []Key
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".pub") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.Dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		pub, comment, _, _, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			applog.Warn(applog.Fields{"file": entry.Name()}, "skipping unparsable public key")
			continue
		}
		keys = append(keys, Key{
			Name:    strings.TrimSuffix(entry.Name(), ".pub"),
			Type:    pub.Type(),
			Comment: comment,
		})
	}
	return keys, nil
}

// Remove deletes both halves of a key pair and reports which files existed.
func (m *Manager) Remove(name string) ([]string, error) {
	keyPath := filepath.Join(m.Dir, name)

	var removed []string
	for _, p := range []string{keyPath, keyPath + ".pub"} {
		err := os.Remove(p)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		removed = append(removed, filepath.Base(p))
	}
	if len(removed) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrKeyNotFound, name)
	}

	applog.Info(applog.Fields{"name": name}, "SSH key pair removed")
	return removed, nil
}
