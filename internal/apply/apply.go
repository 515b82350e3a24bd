// Package apply executes directive semantics against the state extracted by
// the source reader. Every failure here is directive-local or line-local: a
// bad pair degrades that one mapping, is recorded on the directive's Result,
// and the rest of the run proceeds.
package apply

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"voicepatch/internal/directive"
	"voicepatch/internal/host"
	"voicepatch/internal/ordered"
	"voicepatch/internal/source"
	"voicepatch/internal/tabular"
)

// MissingAuxFileError reports an aux file that is absent where one is
// required. List REPLACE, the one place absence is legal, never produces
// this error.
type MissingAuxFileError struct {
	Path string
}

func (e *MissingAuxFileError) Error() string {
	return fmt.Sprintf("aux file does not exist: %s", e.Path)
}

// MissingKeyError reports a REPLACE_KEY pair whose old key is not in the
// list. The pair is skipped.
type MissingKeyError struct {
	Key  string
	List string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("list %q has no key %q to rename", e.List, e.Key)
}

// MissingCommandError reports a command ADD/REPLACE pair whose source phrase
// has no implementation to attach to. The pair is skipped.
type MissingCommandError struct {
	Phrase string
	File   string
}

func (e *MissingCommandError) Error() string {
	return fmt.Sprintf("%s defines no command %q", e.File, e.Phrase)
}

// Result collects what happened while applying one directive.
type Result struct {
	Directive directive.Directive
	Err       error    // directive-fatal: the whole directive was skipped
	PairErrs  []error  // line-local: individual pairs were skipped
	Warnings  []string // non-error conditions worth logging (absent DELETE keys)
}

// Failed reports whether anything at all went wrong.
func (r *Result) Failed() bool {
	return r.Err != nil || len(r.PairErrs) > 0
}

// CommandOverride accumulates the command-domain result for one source file:
// the new bindings to emit plus the source phrases to suppress. Unchanged
// source commands are deliberately not copied; the synthesized context only
// carries the delta.
type CommandOverride struct {
	Source  *source.CommandSet
	Added   *ordered.Map // new phrase → implementation, in directive order
	Removed *ordered.Map // source phrases to suppress (value unused), ordered
}

// NewCommandOverride seeds an accumulator for the given source file.
func NewCommandOverride(src *source.CommandSet) *CommandOverride {
	return &CommandOverride{Source: src, Added: ordered.New(), Removed: ordered.New()}
}

// lookup finds a phrase's implementation in the effective view: bindings
// added by earlier directives win, then the surviving source bindings.
func (o *CommandOverride) lookup(phrase string) (string, bool) {
	if impl, ok := o.Added.Get(phrase); ok {
		return impl, true
	}
	if o.Removed.Has(phrase) {
		return "", false
	}
	return o.Source.Commands.Get(phrase)
}

// remove drops a phrase from the effective view and reports whether it was
// bound at all. A phrase can be bound twice, as an added binding and as a
// surviving source binding; removal must clear both or the source binding
// leaks back into the effective view.
func (o *CommandOverride) remove(phrase string) bool {
	removed := o.Added.Delete(phrase)
	if o.Source.Commands.Has(phrase) && !o.Removed.Has(phrase) {
		o.Removed.Set(phrase, "")
		removed = true
	}
	return removed
}

// Applier applies directives. AuxDir is the directory the control file was
// loaded from; aux file names resolve against it.
type Applier struct {
	FS     host.FS
	AuxDir string
	Log    *zap.Logger
}

// readAux loads and arity-checks an aux file. want is the field count every
// record must have; offending lines are skipped with a line-local error.
func (a *Applier) readAux(name string, want int, res *Result) []tabular.Record {
	path := filepath.Join(a.AuxDir, filepath.FromSlash(name))
	data, err := a.FS.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			res.Err = &MissingAuxFileError{Path: path}
		} else {
			res.Err = err
		}
		return nil
	}
	sc := tabular.NewScanner(strings.NewReader(string(data)))
	var out []tabular.Record
	for sc.Next() {
		rec := sc.Record()
		if len(rec) != want {
			res.PairErrs = append(res.PairErrs, &directive.ConfigSyntaxError{
				Line: sc.Line(),
				Msg:  fmt.Sprintf("%s: expected %d fields, got %d", name, want, len(rec)),
			})
			continue
		}
		out = append(out, rec)
	}
	if err := sc.Err(); err != nil {
		res.Err = err
	}
	return out
}

// ApplyList applies one list directive to the accumulator in place.
func (a *Applier) ApplyList(acc *ordered.Map, listName string, d directive.Directive) *Result {
	res := &Result{Directive: d}
	log := a.Log.With(zap.String("list", listName), zap.String("action", string(d.Action)), zap.Int("line", d.Line))

	switch d.Action {
	case directive.Add:
		for _, rec := range a.readAux(d.AuxPath, 2, res) {
			acc.Set(rec[0], rec[1])
			log.Debug("added list entry", zap.String("key", rec[0]))
		}
	case directive.Delete:
		for _, rec := range a.readAux(d.AuxPath, 1, res) {
			if !acc.Delete(rec[0]) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("list %q has no key %q to delete", listName, rec[0]))
				continue
			}
			log.Debug("deleted list entry", zap.String("key", rec[0]))
		}
	case directive.ReplaceKey:
		for _, rec := range a.readAux(d.AuxPath, 2, res) {
			if !acc.Rename(rec[0], rec[1]) {
				res.PairErrs = append(res.PairErrs, &MissingKeyError{Key: rec[0], List: listName})
				continue
			}
			log.Debug("renamed list key", zap.String("old", rec[0]), zap.String("new", rec[1]))
		}
	case directive.Replace:
		replacement := ordered.New()
		if d.AuxPath != "" {
			recs := a.readAux(d.AuxPath, 2, res)
			if res.Err != nil {
				return res
			}
			for _, rec := range recs {
				replacement.Set(rec[0], rec[1])
			}
		}
		// Absent aux file on REPLACE is replace-with-empty, by contract.
		*acc = *replacement
		log.Debug("replaced list", zap.Int("entries", acc.Len()))
	default:
		res.Err = &directive.ConfigSyntaxError{Line: d.Line, Msg: fmt.Sprintf("action %s is not a list action", d.Action)}
	}
	return res
}

// ApplyCommands applies one command directive to the accumulator in place.
func (a *Applier) ApplyCommands(acc *CommandOverride, d directive.Directive) *Result {
	res := &Result{Directive: d}
	file := acc.Source.OwningFile
	log := a.Log.With(zap.String("file", file), zap.String("action", string(d.Action)), zap.Int("line", d.Line))

	switch d.Action {
	case directive.Add:
		for _, rec := range a.readAux(d.AuxPath, 2, res) {
			impl, ok := acc.lookup(rec[0])
			if !ok {
				res.PairErrs = append(res.PairErrs, &MissingCommandError{Phrase: rec[0], File: file})
				continue
			}
			// Alias: the source phrase stays bound too.
			acc.Added.Set(rec[1], impl)
			log.Debug("added command alias", zap.String("source", rec[0]), zap.String("target", rec[1]))
		}
	case directive.Delete:
		for _, rec := range a.readAux(d.AuxPath, 1, res) {
			if !acc.remove(rec[0]) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("%s has no command %q to delete", file, rec[0]))
				continue
			}
			log.Debug("deleted command", zap.String("phrase", rec[0]))
		}
	case directive.Replace:
		for _, rec := range a.readAux(d.AuxPath, 2, res) {
			impl, ok := acc.lookup(rec[0])
			if !ok {
				res.PairErrs = append(res.PairErrs, &MissingCommandError{Phrase: rec[0], File: file})
				continue
			}
			acc.remove(rec[0])
			acc.Added.Set(rec[1], impl)
			log.Debug("replaced command phrase", zap.String("source", rec[0]), zap.String("target", rec[1]))
		}
	default:
		res.Err = &directive.ConfigSyntaxError{Line: d.Line, Msg: fmt.Sprintf("action %s is not a command action", d.Action)}
	}
	return res
}
