// Package synth renders override results into the artifacts the Talon host
// consumes: replacement .talon-list definitions and personalization .talon
// contexts. Synthesis is a pure function of its inputs: identical inputs
// produce byte-identical artifacts.
package synth

import (
	"fmt"
	"strings"

	"voicepatch/internal/apply"
	"voicepatch/internal/ordered"
	"voicepatch/internal/source"
)

// MarkerTag is the single process-wide personalization marker. Conjoining it
// onto a copied context header makes the synthesized predicate a strict
// narrowing of the source predicate, so the host's most-specific-wins rule
// always prefers the artifact wherever the source would match.
const MarkerTag = "user.personalization"

const banner = "# generated by voicepatch - do not edit, changes will be overwritten\n"

// NarrowHeader copies the source header lines verbatim and conjoins the
// marker tag onto every disjunct. Consecutive matcher lines in a Talon
// header are OR'd while "and"-prefixed lines extend the previous conjunct,
// so the marker is appended after the last line of each and-chain. An empty
// header becomes the bare marker.
func NarrowHeader(header []string) []string {
	marker := "and tag: " + MarkerTag

	var out []string
	sawMatcher := false
	for i, line := range header {
		out = append(out, line)
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		sawMatcher = true
		if nextContinuesChain(header, i) {
			continue
		}
		out = append(out, marker)
	}
	if !sawMatcher {
		return []string{"tag: " + MarkerTag}
	}
	return out
}

// nextContinuesChain reports whether the next matcher line after index i is
// an "and" continuation of the same conjunct.
func nextContinuesChain(header []string, i int) bool {
	for _, line := range header[i+1:] {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		return strings.HasPrefix(trimmed, "and ")
	}
	return false
}

// ListArtifact renders the replacement definition for a personalized list.
func ListArtifact(list *source.List, entries *ordered.Map) []byte {
	var b strings.Builder
	b.WriteString(banner)
	fmt.Fprintf(&b, "list: %s\n", list.Name)
	for _, line := range NarrowHeader(list.Header) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("-\n")
	entries.Each(func(k, v string) {
		if k == v {
			b.WriteString(k)
			b.WriteByte('\n')
			return
		}
		fmt.Fprintf(&b, "%s: %s\n", k, v)
	})
	return []byte(b.String())
}

// CommandArtifact renders the personalization context for a command file:
// the narrowed header, the new bindings in directive order, then a skip()
// suppression for every removed source phrase.
func CommandArtifact(o *apply.CommandOverride) []byte {
	var b strings.Builder
	b.WriteString(banner)
	for _, line := range NarrowHeader(o.Source.Header) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteString("-\n")
	o.Added.Each(func(phrase, impl string) {
		writeCommand(&b, phrase, impl)
	})
	o.Removed.Each(func(phrase, _ string) {
		// Suppress the source binding: the narrowed context always wins, and
		// skip() makes the phrase a no-op there.
		fmt.Fprintf(&b, "%s: skip()\n", phrase)
	})
	return []byte(b.String())
}

// writeCommand emits a binding either inline or as an indented block,
// matching how the source reader captured it.
func writeCommand(b *strings.Builder, phrase, impl string) {
	lines := strings.Split(impl, "\n")
	if len(lines) == 1 && !startsIndented(impl) {
		fmt.Fprintf(b, "%s: %s\n", phrase, impl)
		return
	}
	fmt.Fprintf(b, "%s:\n", phrase)
	for _, line := range lines {
		if !startsIndented(line) && line != "" {
			line = "\t" + line
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
}

func startsIndented(s string) bool {
	return len(s) > 0 && (s[0] == ' ' || s[0] == '\t')
}
