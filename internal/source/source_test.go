package source

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepatch/internal/host"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newReader(t *testing.T) (*Reader, string) {
	t.Helper()
	root := t.TempDir()
	return NewReader(host.OSFS{}, root), root
}

func TestReadList(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "code/symbols.talon-list", `list: user.symbol_key
-
comma: ,
dot: .
question mark: ?
args
`)

	list, err := r.ReadList("code/symbols.talon-list", "user.symbol_key")
	require.NoError(t, err)
	assert.Equal(t, "user.symbol_key", list.Name)

	want := [][2]string{
		{"comma", ","},
		{"dot", "."},
		{"question mark", "?"},
		{"args", "args"}, // bare key maps to itself
	}
	if diff := cmp.Diff(want, list.Entries.Pairs()); diff != "" {
		t.Errorf("entries mismatch (-want +got):\n%s", diff)
	}
}

func TestReadList_KeepsMatcherHeader(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "win/symbols.talon-list", `list: user.symbol_key
os: windows
-
dash: -
`)

	list, err := r.ReadList("win/symbols.talon-list", "user.symbol_key")
	require.NoError(t, err)
	assert.Equal(t, []string{"os: windows"}, list.Header)
}

func TestReadList_WrongName(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "code/symbols.talon-list", "list: user.symbol_key\n-\ndot: .\n")

	_, err := r.ReadList("code/symbols.talon-list", "user.letters")
	var mle *MissingListError
	require.ErrorAs(t, err, &mle)
	assert.Equal(t, "user.letters", mle.Name)
}

func TestReadList_MissingFile(t *testing.T) {
	r, _ := newReader(t)
	_, err := r.ReadList("nope/absent.talon-list", "user.x")
	var mse *MissingSourceError
	require.ErrorAs(t, err, &mse)
}

func TestReadCommandFile(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "apps/vscode.talon", `app: vscode
os: linux
-
# navigation
open file: user.vscode("workbench.action.files.openFile")
say <user.text>:
	insert(user.text)
	key(enter)
settings():
	key_hold = 32
last command: core.repeat_command()
`)

	cs, err := r.ReadCommandFile("apps/vscode.talon")
	require.NoError(t, err)
	assert.Equal(t, []string{"app: vscode", "os: linux"}, cs.Header)

	keys := cs.Commands.Keys()
	assert.Equal(t, []string{"open file", "say <user.text>", "last command"}, keys)

	impl, ok := cs.Commands.Get("say <user.text>")
	require.True(t, ok)
	assert.Equal(t, "\tinsert(user.text)\n\tkey(enter)", impl)

	impl, ok = cs.Commands.Get("open file")
	require.True(t, ok)
	assert.Equal(t, `user.vscode("workbench.action.files.openFile")`, impl)
}

func TestReadCommandFile_NoHeader(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "global.talon", "-\nhello there: \"hi\"\n")

	cs, err := r.ReadCommandFile("global.talon")
	require.NoError(t, err)
	assert.Empty(t, cs.Header)
	assert.True(t, cs.Commands.Has("hello there"))
}

func TestReadCommandFile_SkipsNonCommandBindings(t *testing.T) {
	r, root := newReader(t)
	writeFile(t, root, "media.talon", `-
key(f13): user.toggle_mic()
noise(pop): mouse_click(0)
play music: user.play()
`)

	cs, err := r.ReadCommandFile("media.talon")
	require.NoError(t, err)
	assert.Equal(t, []string{"play music"}, cs.Commands.Keys())
}

func TestResolve_AbsolutePassthrough(t *testing.T) {
	r, root := newReader(t)
	abs := filepath.Join(root, "x.talon")
	assert.Equal(t, abs, r.Resolve(abs))
	assert.Equal(t, filepath.Join(root, "a", "b.talon"), r.Resolve("a/b.talon"))
}
