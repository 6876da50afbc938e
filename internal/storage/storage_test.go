package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiskStore(t *testing.T) {
	s := &DiskStore{Dir: t.TempDir(), URLPrefix: "/media/"}
	ctx := context.Background()

	name := NewObjectName("png")
	assert.True(t, strings.HasPrefix(name, "posts/"))
	assert.True(t, strings.HasSuffix(name, ".png"))

	require.NoError(t, s.Put(ctx, name, []byte("img"), "image/png"))
	b, err := os.ReadFile(filepath.Join(s.Dir, filepath.FromSlash(name)))
	require.NoError(t, err)
	assert.Equal(t, "img", string(b))
	assert.Equal(t, "/media/"+name, s.URL(name))
	assert.Empty(t, s.URL(""))

	require.NoError(t, s.Delete(ctx, name))
	require.NoError(t, s.Delete(ctx, name), "deleting twice is fine")
}
