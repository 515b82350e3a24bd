// Package source reads the live state of a targeted Talon list or command
// file. It never mutates sources and never caches: every regeneration sees
// whatever is on disk right now, so upstream edits flow through untouched.
//
// Extraction assumes one matching context per file. Files that are richer
// than a single list/command block are tolerated (unknown constructs are
// passed over), but a list that cannot be unambiguously located fails with
// MissingListError rather than guessing.
package source

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"voicepatch/internal/host"
	"voicepatch/internal/ordered"
)

// List is the current state of one named list read from a .talon-list file.
type List struct {
	OwningFile string   // absolute path the list was read from
	Name       string   // the declared list name, e.g. "user.symbol_key"
	Header     []string // context matcher lines before the separator, verbatim
	Entries    *ordered.Map
}

// CommandSet is the current state of one command-defining .talon file: its
// context header verbatim plus the ordered phrase→implementation mapping.
type CommandSet struct {
	OwningFile string
	Header     []string
	Commands   *ordered.Map
}

// MissingSourceError reports a referenced source file that does not exist.
type MissingSourceError struct {
	Path string
}

func (e *MissingSourceError) Error() string {
	return fmt.Sprintf("source file does not exist: %s", e.Path)
}

// MissingListError reports a source file that exists but does not define the
// requested list.
type MissingListError struct {
	Path string
	Name string
}

func (e *MissingListError) Error() string {
	return fmt.Sprintf("%s does not define list %q", e.Path, e.Name)
}

// Reader locates and parses source files. Relative paths resolve against the
// configured user root.
type Reader struct {
	FS   host.FS
	Root string
}

// NewReader returns a Reader rooted at root.
func NewReader(fs host.FS, root string) *Reader {
	return &Reader{FS: fs, Root: root}
}

// Resolve turns a directive's source path into an absolute path.
func (r *Reader) Resolve(path string) string {
	path = filepath.FromSlash(path)
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(r.Root, path)
}

func (r *Reader) read(path string) (string, error) {
	data, err := r.FS.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", &MissingSourceError{Path: path}
		}
		return "", err
	}
	return string(data), nil
}

// ReadList extracts the named list from the file at path. The file must be a
// .talon-list file declaring exactly that list; anything else is a
// MissingListError.
func (r *Reader) ReadList(path, name string) (*List, error) {
	abs := r.Resolve(path)
	text, err := r.read(abs)
	if err != nil {
		return nil, err
	}

	header, body := splitContext(text)

	declared := ""
	var matchers []string
	for _, line := range header {
		trimmed := strings.TrimSpace(line)
		if rest, ok := strings.CutPrefix(trimmed, "list:"); ok {
			declared = strings.TrimSpace(rest)
			continue
		}
		matchers = append(matchers, line)
	}
	if declared != name {
		return nil, &MissingListError{Path: abs, Name: name}
	}

	entries := ordered.New()
	for _, line := range body {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		key, value, ok := splitBinding(trimmed)
		if !ok {
			// Bare key: the spoken form maps to itself.
			entries.Set(trimmed, trimmed)
			continue
		}
		entries.Set(key, value)
	}

	return &List{OwningFile: abs, Name: name, Header: matchers, Entries: entries}, nil
}

// ReadCommandFile extracts the context header and the ordered
// phrase→implementation mapping from the .talon file at path. Constructs
// that are not voice commands (settings() blocks, tag() declarations, key
// and face bindings) are skipped, not errors.
func (r *Reader) ReadCommandFile(path string) (*CommandSet, error) {
	abs := r.Resolve(path)
	text, err := r.read(abs)
	if err != nil {
		return nil, err
	}

	header, body := splitContext(text)
	commands := ordered.New()

	var phrase string
	var block []string
	flush := func() {
		if phrase == "" {
			return
		}
		commands.Set(phrase, strings.Join(block, "\n"))
		phrase, block = "", nil
	}

	for _, line := range body {
		if len(line) > 0 && (line[0] == ' ' || line[0] == '\t') {
			// Continuation of the current block.
			if phrase != "" {
				block = append(block, line)
			}
			continue
		}
		flush()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		rule, impl, ok := splitBinding(trimmed)
		if !ok || !isCommandRule(rule) {
			continue
		}
		phrase = rule
		if impl != "" {
			block = append(block, impl)
		}
	}
	flush()

	return &CommandSet{OwningFile: abs, Header: header, Commands: commands}, nil
}

// splitContext splits a talon file into header lines (before the first "-"
// separator line) and body lines. A file with no separator is all body with
// an empty header.
func splitContext(text string) (header, body []string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for i, line := range lines {
		if strings.TrimSpace(line) == "-" {
			return lines[:i], lines[i+1:]
		}
	}
	return nil, lines
}

// splitBinding splits "key: value" on the first colon. Values keep their
// verbatim text; keys are trimmed.
func splitBinding(line string) (key, value string, ok bool) {
	i := strings.Index(line, ":")
	if i < 0 {
		return "", "", false
	}
	return strings.TrimSpace(line[:i]), strings.TrimSpace(line[i+1:]), true
}

// isCommandRule filters out the .talon constructs that look like bindings
// but are not voice commands.
func isCommandRule(rule string) bool {
	for _, prefix := range []string{"settings()", "tag()", "key(", "face(", "parrot(", "gamepad(", "deck(", "noise("} {
		if strings.HasPrefix(rule, prefix) {
			return false
		}
	}
	return rule != ""
}
