package synth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"voicepatch/internal/apply"
	"voicepatch/internal/ordered"
	"voicepatch/internal/source"
)

func TestNarrowHeader_Empty(t *testing.T) {
	assert.Equal(t, []string{"tag: user.personalization"}, NarrowHeader(nil))
}

func TestNarrowHeader_SingleMatcher(t *testing.T) {
	got := NarrowHeader([]string{"app: vscode"})
	assert.Equal(t, []string{"app: vscode", "and tag: user.personalization"}, got)
}

func TestNarrowHeader_OrGroupsEachNarrowed(t *testing.T) {
	// Consecutive matcher lines are OR'd; each disjunct must carry the marker
	// or the synthesized predicate would be true somewhere the source is not
	// strictly narrowed.
	got := NarrowHeader([]string{"os: windows", "os: linux"})
	assert.Equal(t, []string{
		"os: windows",
		"and tag: user.personalization",
		"os: linux",
		"and tag: user.personalization",
	}, got)
}

func TestNarrowHeader_AndChainNarrowedOnce(t *testing.T) {
	got := NarrowHeader([]string{"app: vscode", "and os: linux"})
	assert.Equal(t, []string{
		"app: vscode",
		"and os: linux",
		"and tag: user.personalization",
	}, got)
}

func TestNarrowHeader_CommentsPreserved(t *testing.T) {
	got := NarrowHeader([]string{"# editor commands", "app: vscode"})
	assert.Equal(t, []string{
		"# editor commands",
		"app: vscode",
		"and tag: user.personalization",
	}, got)
}

func TestListArtifact(t *testing.T) {
	list := &source.List{Name: "user.symbol_key"}
	entries := ordered.New()
	entries.Set("dot", ".")
	entries.Set("args", "args")

	got := string(ListArtifact(list, entries))
	want := strings.Join([]string{
		"# generated by voicepatch - do not edit, changes will be overwritten",
		"list: user.symbol_key",
		"tag: user.personalization",
		"-",
		"dot: .",
		"args",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestListArtifact_Deterministic(t *testing.T) {
	list := &source.List{Name: "user.x", Header: []string{"os: mac"}}
	entries := ordered.New()
	entries.Set("a", "1")
	entries.Set("b", "2")

	first := ListArtifact(list, entries)
	second := ListArtifact(list, entries)
	assert.Equal(t, first, second)
}

func TestCommandArtifact(t *testing.T) {
	src := &source.CommandSet{
		OwningFile: "apps/test.talon",
		Header:     []string{"app: test"},
		Commands:   ordered.New(),
	}
	src.Commands.Set("thing one", "app.do()")

	o := apply.NewCommandOverride(src)
	o.Added.Set("thing two", "app.do()")
	o.Removed.Set("thing one", "")

	got := string(CommandArtifact(o))
	want := strings.Join([]string{
		"# generated by voicepatch - do not edit, changes will be overwritten",
		"app: test",
		"and tag: user.personalization",
		"-",
		"thing two: app.do()",
		"thing one: skip()",
		"",
	}, "\n")
	assert.Equal(t, want, got)
}

func TestCommandArtifact_BlockBody(t *testing.T) {
	src := &source.CommandSet{Header: nil, Commands: ordered.New()}
	o := apply.NewCommandOverride(src)
	o.Added.Set("say it", "\tinsert(user.text)\n\tkey(enter)")

	got := string(CommandArtifact(o))
	require.Contains(t, got, "say it:\n\tinsert(user.text)\n\tkey(enter)\n")
}
