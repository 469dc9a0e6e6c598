package auth

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/ssh"
)

func genKey(t *testing.T) (ssh.PublicKey, string) {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	sshPub, err := ssh.NewPublicKey(pub)
	require.NoError(t, err)
	return sshPub, strings.TrimSpace(string(ssh.MarshalAuthorizedKey(sshPub)))
}

func TestParseSkipsCommentsAndBlanks(t *testing.T) {
	_, line := genKey(t)
	input := "# comment\n\n" + line + "\nnot a key\n"

	al, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, 1, al.Len())
}

func TestContains(t *testing.T) {
	allowed, line := genKey(t)
	other, _ := genKey(t)

	al, err := Parse(strings.NewReader(line))
	require.NoError(t, err)

	assert.True(t, al.Contains(allowed))
	assert.False(t, al.Contains(other))
	assert.False(t, al.Contains(nil))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir() + "/nope")
	assert.ErrorIs(t, err, ErrAllowlistNotFound)
}
