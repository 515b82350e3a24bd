// Package directive turns control-file records into typed personalization
// directives. Validation is per-line: a malformed line is reported and
// skipped, the rest of the file still loads.
package directive

import (
	"fmt"
	"strings"

	"voicepatch/internal/tabular"
)

// Domain selects which control-file grammar applies.
type Domain string

const (
	// Lists is the list-personalization domain (4-field grammar, aux
	// optional for REPLACE).
	Lists Domain = "lists"
	// Commands is the command-personalization domain (3-field grammar, aux
	// always required).
	Commands Domain = "commands"
)

// Action is a directive verb. REPLACE_KEY is legal only for lists.
type Action string

const (
	Add        Action = "ADD"
	Delete     Action = "DELETE"
	Replace    Action = "REPLACE"
	ReplaceKey Action = "REPLACE_KEY"
)

// Directive is one validated control-file line.
type Directive struct {
	Action     Action
	SourcePath string // absolute, or relative to the user root
	ListName   string // lists domain only
	AuxPath    string // empty only for list REPLACE
	Line       int    // control-file line, for reporting
}

// ConfigSyntaxError reports a control-file line that failed validation.
type ConfigSyntaxError struct {
	Line int
	Msg  string
}

func (e *ConfigSyntaxError) Error() string {
	return fmt.Sprintf("control file line %d: %s", e.Line, e.Msg)
}

func listActionLegal(a Action) bool {
	switch a {
	case Add, Delete, Replace, ReplaceKey:
		return true
	}
	return false
}

func commandActionLegal(a Action) bool {
	switch a {
	case Add, Delete, Replace:
		return true
	}
	return false
}

// Load validates every record the scanner yields against the domain's
// grammar and returns the directives that passed, in file order, plus one
// *ConfigSyntaxError per line that did not.
func Load(sc *tabular.Scanner, domain Domain) ([]Directive, []error) {
	var out []Directive
	var errs []error
	for sc.Next() {
		d, err := parseOne(sc.Record(), sc.Line(), domain)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, d)
	}
	if err := sc.Err(); err != nil {
		errs = append(errs, err)
	}
	return out, errs
}

// LoadString parses and validates a whole control file held in memory.
func LoadString(s string, domain Domain) ([]Directive, []error) {
	return Load(tabular.NewScanner(strings.NewReader(s)), domain)
}

func parseOne(rec tabular.Record, line int, domain Domain) (Directive, error) {
	action := Action(strings.ToUpper(strings.TrimSpace(rec[0])))
	switch domain {
	case Lists:
		if len(rec) != 3 && len(rec) != 4 {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("expected 3 or 4 fields, got %d", len(rec))}
		}
		if !listActionLegal(action) {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("unknown list action %q", rec[0])}
		}
		d := Directive{Action: action, SourcePath: rec[1], ListName: rec[2], Line: line}
		if len(rec) == 4 {
			d.AuxPath = rec[3]
		}
		if d.AuxPath == "" && action != Replace {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("action %s requires an aux file", action)}
		}
		return d, nil
	case Commands:
		if len(rec) != 3 {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("expected 3 fields, got %d", len(rec))}
		}
		if !commandActionLegal(action) {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("unknown command action %q", rec[0])}
		}
		if rec[2] == "" {
			return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("action %s requires an aux file", action)}
		}
		return Directive{Action: action, SourcePath: rec[1], AuxPath: rec[2], Line: line}, nil
	default:
		return Directive{}, &ConfigSyntaxError{Line: line, Msg: fmt.Sprintf("unknown domain %q", domain)}
	}
}
