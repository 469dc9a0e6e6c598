// Package auth handles SSH public key authentication via an allowlist file.
package auth

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"strings"

	"golang.org/x/crypto/ssh"
)

// ErrAllowlistNotFound is returned when the allowlist file doesn't exist.
var ErrAllowlistNotFound = errors.New("allowlist file not found")

// Allowlist is a set of SSH public keys permitted to connect.
type Allowlist struct {
	keys []ssh.PublicKey
}

// Load reads an OpenSSH authorized_keys format file into an Allowlist.
func Load(path string) (*Allowlist, error) {
	file, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrAllowlistNotFound
		}
		return nil, err
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads authorized_keys lines from r, skipping blanks, comments, and
// lines that fail to parse.
func Parse(r io.Reader) (*Allowlist, error) {
	al := &Allowlist{}
	scanner := bufio.NewScanner(r)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		pubKey, _, _, _, err := ssh.ParseAuthorizedKey([]byte(line))
		if err != nil {
			continue
		}
		al.keys = append(al.keys, pubKey)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return al, nil
}

// Contains reports whether key is in the allowlist, comparing marshaled
// key bytes.
func (al *Allowlist) Contains(key ssh.PublicKey) bool {
	if key == nil {
		return false
	}

	keyBytes := key.Marshal()
	for _, allowed := range al.keys {
		if bytes.Equal(keyBytes, allowed.Marshal()) {
			return true
		}
	}
	return false
}

// Len returns the number of keys in the allowlist.
func (al *Allowlist) Len() int {
	return len(al.keys)
}

// WriteTemplate creates an empty allowlist file with usage instructions.
func WriteTemplate(path string) error {
	content := `# SSH public key allowlist for the Hemline terminal storefront.
# One key per line, OpenSSH authorized_keys format:
# ssh-ed25519 AAAAC3NzaC1lZDI1NTE5AAAAIExample... shopper@host
`
	return os.WriteFile(path, []byte(content), 0644)
}
