package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolvePrefersLinkerValues(t *testing.T) {
	oldVersion, oldCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = oldVersion, oldCommit })

	Version = "v1.2.3"
	Commit = "0123456789abcdef0123"

	info := Resolve()
	assert.Equal(t, "v1.2.3", info.Version)
	assert.Equal(t, "0123456789abcdef0123", info.Commit)
	assert.Equal(t, "v1.2.3 (0123456789ab)", String())
}

func TestResolveNeverEmpty(t *testing.T) {
	oldVersion := Version
	t.Cleanup(func() { Version = oldVersion })
	Version = ""

	assert.NotEmpty(t, Resolve().Version)
}

func TestShortCommit(t *testing.T) {
	assert.Equal(t, "abc", shortCommit("abc"))
	assert.Equal(t, "0123456789ab", shortCommit("0123456789abcdef"))
}
