// Package refresh owns regeneration: it decides when a domain must re-run,
// serializes runs so overlapping triggers cannot interleave, and drives the
// load → apply → synthesize pipeline for every directive in a control file.
package refresh

import (
	"context"
	"crypto/sha256"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"voicepatch/internal/apply"
	"voicepatch/internal/config"
	"voicepatch/internal/directive"
	"voicepatch/internal/host"
	"voicepatch/internal/ordered"
	"voicepatch/internal/source"
	"voicepatch/internal/state"
	"voicepatch/internal/synth"
	"voicepatch/internal/tabular"
)

// State is a domain's position in the refresh lifecycle.
type State string

const (
	// StateIdle means the domain has not run since startup.
	StateIdle State = "idle"
	// StateLoading means a regeneration is in flight.
	StateLoading State = "loading"
	// StateCommitted means the last run wrote its artifacts.
	StateCommitted State = "committed"
	// StateFailed means the last run had errors; artifacts for the
	// directives that did succeed were still committed.
	StateFailed State = "failed"
	// StateDisabled means personalization is off and artifacts are removed.
	StateDisabled State = "disabled"
)

// Domains in regeneration order for RefreshAll. The two domains are
// independent; the order is cosmetic.
var Domains = []directive.Domain{directive.Lists, directive.Commands}

// domainState serializes one domain. A trigger that arrives while loading
// sets pending, which the in-flight runner turns into exactly one follow-up
// run. Triggers are debounced, never stacked.
type domainState struct {
	name    directive.Domain
	mu      sync.Mutex
	loading bool
	pending bool
	state   State
}

// Controller coordinates refreshes across both configuration domains.
type Controller struct {
	mu    sync.RWMutex
	cfg   *config.Config
	fs    host.FS
	reg   host.Registry
	store *state.Store
	log   *zap.Logger

	domains map[directive.Domain]*domainState
}

// NewController wires a controller against its collaborators.
func NewController(cfg *config.Config, fs host.FS, reg host.Registry, store *state.Store, log *zap.Logger) *Controller {
	c := &Controller{
		cfg:     cfg,
		fs:      fs,
		reg:     reg,
		store:   store,
		log:     log,
		domains: make(map[directive.Domain]*domainState),
	}
	for _, d := range Domains {
		c.domains[d] = &domainState{name: d, state: StateIdle}
	}
	return c
}

// UpdateConfig swaps in freshly loaded settings; the watcher calls this
// before reacting to an enable/disable flip.
func (c *Controller) UpdateConfig(cfg *config.Config) {
	c.mu.Lock()
	c.cfg = cfg
	c.mu.Unlock()
}

func (c *Controller) config() *config.Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cfg
}

// StateOf reports the domain's current lifecycle state.
func (c *Controller) StateOf(domain directive.Domain) State {
	d := c.domains[domain]
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// Refresh regenerates one domain. A call that lands while the same domain is
// already loading is coalesced: it returns immediately and the in-flight
// runner performs one follow-up run after the current one finishes.
func (c *Controller) Refresh(ctx context.Context, domain directive.Domain) error {
	d, ok := c.domains[domain]
	if !ok {
		return fmt.Errorf("unknown domain %q", domain)
	}

	d.mu.Lock()
	if d.loading {
		d.pending = true
		d.mu.Unlock()
		c.log.Debug("refresh coalesced into in-flight run", zap.String("domain", string(domain)))
		return nil
	}
	d.loading = true
	d.mu.Unlock()

	var err error
	for {
		err = c.runOnce(ctx, d)

		d.mu.Lock()
		if d.pending {
			d.pending = false
			d.mu.Unlock()
			continue
		}
		d.loading = false
		d.mu.Unlock()
		return err
	}
}

// RefreshAll regenerates every domain. Domains are independent, so they run
// concurrently; each is internally serialized.
func (c *Controller) RefreshAll(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, domain := range Domains {
		domain := domain
		g.Go(func() error { return c.Refresh(ctx, domain) })
	}
	return g.Wait()
}

// Stale reports whether the domain needs a run: its most recent run is not a
// committed one (never ran, failed, or was a disable that purged the
// artifacts), or any input of the last committed run has a different
// modification time now. The check happens at trigger time; file-change
// notifications are never trusted directly because they fire before new
// content is readable.
func (c *Controller) Stale(domain directive.Domain) (bool, error) {
	last, err := c.store.LastRun(string(domain))
	if err != nil {
		return false, err
	}
	if last == nil || last.Outcome != state.OutcomeCommitted {
		return true, nil
	}
	inputs, err := c.store.LastInputs(string(domain))
	if err != nil {
		return false, err
	}
	if len(inputs) == 0 {
		return true, nil
	}
	for path, recorded := range inputs {
		mtime, err := c.fs.ModTime(path)
		if err != nil || !mtime.Equal(recorded) {
			return true, nil
		}
	}
	return false, nil
}

// RefreshIfStale runs a staleness check and regenerates only when needed.
// It reports whether a refresh ran.
func (c *Controller) RefreshIfStale(ctx context.Context, domain directive.Domain) (bool, error) {
	stale, err := c.Stale(domain)
	if err != nil {
		return false, err
	}
	if !stale {
		c.log.Debug("inputs unchanged, skipping refresh", zap.String("domain", string(domain)))
		return false, nil
	}
	return true, c.Refresh(ctx, domain)
}

// SetEnabled applies the enable_personalization transition: enabling
// re-enters Loading from scratch for every domain, disabling removes the
// emitted artifacts and parks the domains in Disabled.
func (c *Controller) SetEnabled(ctx context.Context, enabled bool) error {
	if enabled {
		return c.RefreshAll(ctx)
	}
	for _, domain := range Domains {
		if err := c.disable(domain); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) disable(domain directive.Domain) error {
	d := c.domains[domain]
	if err := c.reg.Purge(string(domain)); err != nil {
		return err
	}
	d.mu.Lock()
	d.state = StateDisabled
	d.mu.Unlock()

	now := time.Now()
	run := state.Run{
		ID: uuid.NewString(), Domain: string(domain),
		Started: now, Finished: now, Outcome: state.OutcomeDisabled,
	}
	if err := c.store.RecordRun(run, nil, nil); err != nil {
		return err
	}
	c.log.Info("personalization disabled, artifacts removed", zap.String("domain", string(domain)))
	return nil
}

// controlDir returns the directory holding a domain's control file.
func controlDir(cfg *config.Config, domain directive.Domain) string {
	if domain == directive.Lists {
		return cfg.ListControlDir()
	}
	return cfg.CommandControlDir()
}

// artifact is one synthesized override waiting to be installed.
type artifact struct {
	rel     string
	content []byte
}

// runOnce performs a single regeneration for the domain. All directive and
// line failures are collected and reported; the only abort is an unreadable
// control file, which leaves previous artifacts in place.
func (c *Controller) runOnce(ctx context.Context, d *domainState) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cfg := c.config()
	log := c.log.Named(string(d.name))

	if !cfg.EnablePersonalization {
		d.mu.Lock()
		already := d.state == StateDisabled
		d.mu.Unlock()
		if already {
			return nil
		}
		return c.disable(d.name)
	}

	d.mu.Lock()
	d.state = StateLoading
	d.mu.Unlock()

	started := time.Now()
	runID := uuid.NewString()
	tfs := newTrackingFS(c.fs)
	dir := controlDir(cfg, d.name)
	controlPath := filepath.Join(dir, "control.csv")

	rep := newReport(log, cfg.VerbosePersonalization)

	data, err := tfs.ReadFile(controlPath)
	if err != nil {
		// Total failure to load directives: abort this domain, keep the
		// previous artifacts untouched.
		d.mu.Lock()
		d.state = StateFailed
		d.mu.Unlock()
		msg := fmt.Sprintf("cannot read control file %s: %v", controlPath, err)
		log.Error("refresh aborted", zap.String("control", controlPath), zap.Error(err))
		run := state.Run{
			ID: runID, Domain: string(d.name), Started: started, Finished: time.Now(),
			Outcome: state.OutcomeFailed, Errors: 1,
		}
		if rerr := c.store.RecordRun(run, tfs.seen(), []string{msg}); rerr != nil {
			return rerr
		}
		return err
	}

	directives, loadErrs := directive.Load(tabular.NewScanner(strings.NewReader(string(data))), d.name)
	for _, e := range loadErrs {
		rep.addError(e)
	}

	reader := source.NewReader(tfs, cfg.Root)
	applier := &apply.Applier{FS: tfs, AuxDir: dir, Log: log}

	var artifacts []artifact
	if d.name == directive.Lists {
		artifacts = c.runLists(reader, applier, directives, rep)
	} else {
		artifacts = c.runCommands(reader, applier, directives, rep)
	}

	// Replace the domain's artifact set atomically with respect to this
	// run: everything was computed in memory before anything is written.
	if err := c.reg.Purge(string(d.name)); err != nil {
		rep.addError(fmt.Errorf("purge artifacts: %w", err))
	}
	installed := 0
	for _, a := range artifacts {
		if _, err := c.reg.Install(string(d.name), a.rel, a.content); err != nil {
			rep.addError(fmt.Errorf("install %s: %w", a.rel, err))
			continue
		}
		installed++
	}

	outcome := state.OutcomeCommitted
	final := StateCommitted
	if rep.errs > 0 {
		outcome = state.OutcomeFailed
		final = StateFailed
	}
	d.mu.Lock()
	d.state = final
	d.mu.Unlock()

	run := state.Run{
		ID: runID, Domain: string(d.name), Started: started, Finished: time.Now(),
		Outcome: outcome, Artifacts: installed, Errors: rep.errs, Warnings: rep.warns,
	}
	if err := c.store.RecordRun(run, tfs.seen(), rep.messages); err != nil {
		return err
	}

	log.Info("refresh finished",
		zap.String("run", runID),
		zap.String("outcome", outcome),
		zap.Int("directives", len(directives)),
		zap.Int("artifacts", installed),
		zap.Int("errors", rep.errs),
		zap.Int("warnings", rep.warns))
	return nil
}

// listAcc accumulates one targeted list across its directives.
type listAcc struct {
	src *source.List
	acc *ordered.Map
}

func (c *Controller) runLists(reader *source.Reader, applier *apply.Applier, directives []directive.Directive, rep *report) []artifact {
	accs := make(map[string]*listAcc)
	var order []string

	for _, dir := range directives {
		key := dir.SourcePath + "\x00" + dir.ListName
		la, ok := accs[key]
		if !ok {
			src, err := reader.ReadList(dir.SourcePath, dir.ListName)
			if err != nil {
				rep.addError(err)
				continue
			}
			la = &listAcc{src: src, acc: src.Entries.Clone()}
			accs[key] = la
			order = append(order, key)
		}
		rep.addResult(applier.ApplyList(la.acc, dir.ListName, dir))
	}

	cfg := c.config()
	var out []artifact
	for _, key := range order {
		la := accs[key]
		out = append(out, artifact{
			rel:     artifactRel(cfg.Root, la.src.OwningFile),
			content: synth.ListArtifact(la.src, la.acc),
		})
	}
	return out
}

func (c *Controller) runCommands(reader *source.Reader, applier *apply.Applier, directives []directive.Directive, rep *report) []artifact {
	accs := make(map[string]*apply.CommandOverride)
	var order []string

	for _, dir := range directives {
		acc, ok := accs[dir.SourcePath]
		if !ok {
			src, err := reader.ReadCommandFile(dir.SourcePath)
			if err != nil {
				rep.addError(err)
				continue
			}
			acc = apply.NewCommandOverride(src)
			accs[dir.SourcePath] = acc
			order = append(order, dir.SourcePath)
		}
		rep.addResult(applier.ApplyCommands(acc, dir))
	}

	cfg := c.config()
	var out []artifact
	for _, key := range order {
		acc := accs[key]
		if acc.Added.Len() == 0 && acc.Removed.Len() == 0 {
			// Every pair failed or the aux files were empty; an artifact
			// with no bindings would only add noise to the host.
			continue
		}
		out = append(out, artifact{
			rel:     artifactRel(cfg.Root, acc.Source.OwningFile),
			content: synth.CommandArtifact(acc),
		})
	}
	return out
}

// artifactRel maps a source file to its artifact path relative to the
// domain's output subtree, mirroring the source layout when the source is
// under the user root. Sources outside the root land in a directory keyed by
// a digest of their parent path, so two external files sharing a base name
// cannot overwrite each other's artifact.
func artifactRel(root, owning string) string {
	rel, err := filepath.Rel(root, owning)
	if err != nil || strings.HasPrefix(rel, "..") {
		sum := sha256.Sum256([]byte(filepath.Dir(owning)))
		return filepath.Join(fmt.Sprintf("external-%x", sum[:4]), filepath.Base(owning))
	}
	return rel
}

// report aggregates a run's directive-local failures and warnings.
type report struct {
	log      *zap.Logger
	verbose  bool
	messages []string
	errs     int
	warns    int
}

func newReport(log *zap.Logger, verbose bool) *report {
	return &report{log: log, verbose: verbose}
}

func (r *report) addError(err error) {
	r.errs++
	r.messages = append(r.messages, err.Error())
	r.log.Warn("directive error", zap.Error(err))
}

func (r *report) addWarning(msg string) {
	r.warns++
	r.messages = append(r.messages, msg)
	r.log.Warn("directive warning", zap.String("warning", msg))
}

func (r *report) addResult(res *apply.Result) {
	if res.Err != nil {
		r.addError(res.Err)
	}
	for _, e := range res.PairErrs {
		r.addError(e)
	}
	for _, w := range res.Warnings {
		r.addWarning(w)
	}
	if r.verbose {
		r.log.Debug("directive applied",
			zap.String("action", string(res.Directive.Action)),
			zap.String("source", res.Directive.SourcePath),
			zap.Int("line", res.Directive.Line),
			zap.Bool("clean", !res.Failed()))
	}
}

// trackingFS records the modification time of every file the run reads, so
// the state store can answer "did anything change" at the next trigger.
type trackingFS struct {
	host.FS
	mu     sync.Mutex
	mtimes map[string]time.Time
}

func newTrackingFS(fs host.FS) *trackingFS {
	return &trackingFS{FS: fs, mtimes: make(map[string]time.Time)}
}

func (t *trackingFS) ReadFile(path string) ([]byte, error) {
	data, err := t.FS.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if mtime, merr := t.FS.ModTime(path); merr == nil {
		t.mu.Lock()
		t.mtimes[path] = mtime
		t.mu.Unlock()
	}
	return data, nil
}

func (t *trackingFS) seen() map[string]time.Time {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make(map[string]time.Time, len(t.mtimes))
	for k, v := range t.mtimes {
		out[k] = v
	}
	return out
}
