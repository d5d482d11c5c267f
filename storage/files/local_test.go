package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreSave(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	ref, err := store.Save("cls-1", "term paper.pdf", strings.NewReader("pdf bytes"))
	require.NoError(t, err)

	assert.Equal(t, "term_paper.pdf", ref.Name)
	assert.NotEmpty(t, ref.ID)
	assert.Equal(t, "/media/cls-1/"+ref.ID+"/term_paper.pdf", ref.URL)

	data, err := os.ReadFile(filepath.Join(store.Root(), "cls-1", ref.ID, "term_paper.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "pdf bytes", string(data))
}

func TestLocalStoreSaveStripsPath(t *testing.T) {
	store := NewLocalStore(t.TempDir())

	ref, err := store.Save("cls-1", "../../etc/passwd", strings.NewReader("nope"))
	require.NoError(t, err)
	assert.Equal(t, "passwd", ref.Name)
}
