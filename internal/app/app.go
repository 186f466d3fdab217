// # internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/glob"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"recompile/internal/analyzer"
	"recompile/internal/config"
	"recompile/internal/deps"
	"recompile/internal/observability"
	"recompile/internal/output"
	"recompile/internal/pattern"
	"recompile/internal/store"
	"recompile/internal/watcher"
)

const queryCacheSize = 4096

// Plan is the outcome of one pass: what must be recompiled.
type Plan struct {
	FullRebuild bool
	Classes     []string // sorted FQNs, empty on full rebuild
	Files       []string // sorted declaring files, empty on full rebuild

	ChangedFiles int
	Duration     time.Duration
}

// Update is pushed to the UI after every pass.
type Update struct {
	Plan           Plan
	FileCount      int
	ClassCount     int
	EdgeCount      int
	UnboundedCount int
	PassID         string
}

type App struct {
	Config   *config.Config
	Store    *store.Store // optional, nil disables persistence
	analyzer *analyzer.Analyzer
	limiter  *watcher.Limiter

	mu         sync.RWMutex
	snapshot   *analyzer.Snapshot
	queryCache *lru.Cache[string, deps.DependentsSet]

	updateMu sync.RWMutex
	onUpdate func(Update)

	passMu    sync.Mutex
	passCount int
	lastPass  time.Time

	revision string
}

func New(cfg *config.Config) (*App, error) {
	cache, err := lru.New[string, deps.DependentsSet](queryCacheSize)
	if err != nil {
		return nil, err
	}

	var limiter *watcher.Limiter
	if cfg.Watch.RateLimit > 0 {
		limiter = watcher.NewLimiter(cfg.Watch.RateLimit, 1)
	}

	revision := cfg.Project.Revision
	if revision == "" && len(cfg.SourceRoots) > 0 {
		revision, _ = store.ResolveGitMetadata(cfg.SourceRoots[0])
	}

	return &App{
		Config:     cfg,
		analyzer:   analyzer.New(cfg.Analysis.UnboundedAnnotations),
		limiter:    limiter,
		queryCache: cache,
		revision:   revision,
	}, nil
}

func (a *App) SetUpdateHandler(handler func(Update)) {
	a.updateMu.Lock()
	defer a.updateMu.Unlock()
	a.onUpdate = handler
}

// Snapshot returns the current resolved view, nil before the first pass.
func (a *App) Snapshot() *analyzer.Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// InitialScan parses every source file under the configured roots and runs
// the first pass. The resulting plan is always a full rebuild.
func (a *App) InitialScan(ctx context.Context) error {
	ctx, span := observability.Tracer.Start(ctx, "app.InitialScan")
	defer span.End()

	start := time.Now()

	files, err := a.ScanDirectories(a.Config.SourceRoots, a.Config.Exclude.Dirs, a.Config.Exclude.Files)
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.Int("files", len(files)))

	for _, filePath := range files {
		if err := a.ProcessFile(filePath); err != nil {
			slog.Warn("failed to process file", "path", filePath, "error", err)
		}
	}

	snapshot := a.resolve()
	plan := Plan{
		FullRebuild:  true,
		ChangedFiles: len(files),
		Duration:     time.Since(start),
	}
	a.finishPass("initial", snapshot, plan)
	return nil
}

func (a *App) ScanDirectories(paths []string, excludeDirs, excludeFiles []string) ([]string, error) {
	var files []string

	dirGlobs := make([]glob.Glob, 0, len(excludeDirs))
	for _, p := range excludeDirs {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude dir pattern %q: %w", p, err)
		}
		dirGlobs = append(dirGlobs, g)
	}

	fileGlobs := make([]glob.Glob, 0, len(excludeFiles))
	for _, p := range excludeFiles {
		g, err := glob.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("invalid exclude file pattern %q: %w", p, err)
		}
		fileGlobs = append(fileGlobs, g)
	}

	for _, root := range uniqueScanRoots(paths) {
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			base := filepath.Base(path)
			if d.IsDir() {
				for _, g := range dirGlobs {
					if g.Match(base) {
						return filepath.SkipDir
					}
				}
				return nil
			}

			if filepath.Ext(path) != ".java" {
				return nil
			}

			for _, g := range fileGlobs {
				if g.Match(base) {
					return nil
				}
			}

			files = append(files, path)
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	return files, nil
}

func uniqueScanRoots(paths []string) []string {
	seen := make(map[string]bool, len(paths))
	roots := make([]string, 0, len(paths))
	for _, p := range paths {
		normalized := filepath.Clean(p)
		if abs, err := filepath.Abs(normalized); err == nil {
			normalized = filepath.Clean(abs)
		}
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		roots = append(roots, normalized)
	}
	sort.Strings(roots)
	return roots
}

func (a *App) ProcessFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := a.analyzer.ProcessFile(path, content); err != nil {
		return err
	}
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	return nil
}

// HandleChanges runs one incremental pass over a debounced change batch.
func (a *App) HandleChanges(changes []watcher.Change) {
	observability.WatcherEventsTotal.Inc()

	ctx := context.Background()
	if err := a.limiter.Wait(ctx); err != nil {
		slog.Warn("rate limiter interrupted", "error", err)
		return
	}

	ctx, span := observability.Tracer.Start(ctx, "app.HandleChanges",
		trace.WithAttributes(attribute.Int("changes", len(changes))))
	defer span.End()

	slog.Info("detected changes", "count", len(changes))
	start := time.Now()

	// Classes declared by the changed files before re-parsing. A deleted or
	// renamed class still invalidates its old dependents.
	previous := a.Snapshot()
	changedClasses := make(map[string]struct{})
	for _, change := range changes {
		if previous != nil {
			for _, class := range previous.ClassesByFile[change.Path] {
				changedClasses[class] = struct{}{}
			}
		}
		if change.Deleted {
			a.analyzer.RemoveFile(change.Path)
			continue
		}
		if err := a.ProcessFile(change.Path); err != nil {
			slog.Warn("failed to re-process file", "path", change.Path, "error", err)
		}
	}

	snapshot := a.resolve()
	for _, change := range changes {
		for _, class := range snapshot.ClassesByFile[change.Path] {
			changedClasses[class] = struct{}{}
		}
	}

	plan := a.computePlan(previous, snapshot, changedClasses)
	plan.ChangedFiles = len(changes)
	plan.Duration = time.Since(start)

	a.finishPass("incremental", snapshot, plan)
}

// computePlan unions the relevant dependents of every changed class. The
// previous snapshot is consulted too: dependents of a deleted class only
// exist in the old graph. Any unbounded answer collapses the plan into a
// full rebuild.
func (a *App) computePlan(previous, snapshot *analyzer.Snapshot, changedClasses map[string]struct{}) Plan {
	classSet := make(map[string]struct{})
	for class := range changedClasses {
		// The changed class itself recompiles, unless it is a nested type
		// folded into its outer class's source file or no longer exists.
		if _, exists := snapshot.FilesByClass[class]; exists && !strings.Contains(class, deps.NestingSeparator) {
			classSet[class] = struct{}{}
		}

		dependents := snapshot.Graph.RelevantDependentsOf(class)
		if dependents.UnboundedImpact() {
			observability.FullRebuildsTotal.Inc()
			return Plan{FullRebuild: true}
		}
		for _, name := range dependents.DependentClasses() {
			classSet[name] = struct{}{}
		}

		if previous == nil {
			continue
		}
		old := previous.Graph.RelevantDependentsOf(class)
		if old.UnboundedImpact() {
			observability.FullRebuildsTotal.Inc()
			return Plan{FullRebuild: true}
		}
		for _, name := range old.DependentClasses() {
			if _, exists := snapshot.FilesByClass[name]; exists {
				classSet[name] = struct{}{}
			}
		}
	}

	classes := make([]string, 0, len(classSet))
	fileSet := make(map[string]struct{})
	for class := range classSet {
		classes = append(classes, class)
		if file, ok := snapshot.FilesByClass[class]; ok {
			fileSet[file] = struct{}{}
		}
	}
	sort.Strings(classes)

	files := make([]string, 0, len(fileSet))
	for file := range fileSet {
		files = append(files, file)
	}
	sort.Strings(files)

	return Plan{Classes: classes, Files: files}
}

// resolve rebuilds the snapshot and swaps it in, invalidating the query
// cache.
func (a *App) resolve() *analyzer.Snapshot {
	snapshot := a.analyzer.Resolve()

	a.mu.Lock()
	a.snapshot = snapshot
	a.queryCache.Purge()
	a.mu.Unlock()

	observability.GraphClasses.Set(float64(snapshot.Graph.ClassCount()))
	observability.GraphEdges.Set(float64(snapshot.Graph.EdgeCount()))
	observability.GraphUnbounded.Set(float64(snapshot.Graph.UnboundedCount()))

	return snapshot
}

func (a *App) finishPass(kind string, snapshot *analyzer.Snapshot, plan Plan) {
	observability.PassDuration.WithLabelValues(kind).Observe(plan.Duration.Seconds())

	passID := a.persistPass(snapshot, plan)

	a.passMu.Lock()
	a.passCount++
	a.lastPass = time.Now()
	passNumber := a.passCount
	a.passMu.Unlock()

	if err := a.GenerateOutputs(snapshot, plan, passNumber); err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}

	a.PrintSummary(snapshot, plan)
	a.emitUpdate(Update{
		Plan:           plan,
		FileCount:      a.analyzer.FileCount(),
		ClassCount:     snapshot.Graph.ClassCount(),
		EdgeCount:      snapshot.Graph.EdgeCount(),
		UnboundedCount: snapshot.Graph.UnboundedCount(),
		PassID:         passID,
	})
}

func (a *App) persistPass(snapshot *analyzer.Snapshot, plan Plan) string {
	if a.Store == nil {
		return ""
	}

	commitHash, commitTime := a.revision, time.Time{}
	if a.Config.Project.Revision == "" && len(a.Config.SourceRoots) > 0 {
		commitHash, commitTime = store.ResolveGitMetadata(a.Config.SourceRoots[0])
	}

	saved, err := a.Store.SavePass(store.Pass{
		ProjectKey: a.Config.Project.Name,
		CommitHash: commitHash,
		CommitTime: commitTime,
		FileCount:  a.analyzer.FileCount(),
		Duration:   plan.Duration,
	}, snapshot.Graph)
	if err != nil {
		slog.Error("failed to persist pass", "error", err)
		return ""
	}

	if err := a.Store.Prune(a.Config.Project.Name, a.Config.Store.History); err != nil {
		slog.Warn("failed to prune pass history", "error", err)
	}
	return saved.ID
}

// RelevantDependents answers the impact query for one class, caching
// bounded answers until the next pass.
func (a *App) RelevantDependents(class string) deps.DependentsSet {
	a.mu.RLock()
	snapshot := a.snapshot
	if cached, ok := a.queryCache.Get(class); ok {
		a.mu.RUnlock()
		observability.QueryCacheHitsTotal.Inc()
		return cached
	}
	a.mu.RUnlock()

	if snapshot == nil {
		return deps.NewDependentsSet()
	}

	result := snapshot.Graph.RelevantDependentsOf(class)
	if result.UnboundedImpact() {
		observability.QueriesTotal.WithLabelValues("unbounded").Inc()
	} else {
		observability.QueriesTotal.WithLabelValues("bounded").Inc()
	}

	a.mu.Lock()
	if a.snapshot == snapshot {
		a.queryCache.Add(class, result)
	}
	a.mu.Unlock()

	return result
}

// ImpactReport renders the impact of changing one class, for the --impact
// flag.
func (a *App) ImpactReport(class string) (string, error) {
	snapshot := a.Snapshot()
	if snapshot == nil {
		return "", fmt.Errorf("no analysis pass has run yet")
	}
	if _, ok := snapshot.FilesByClass[class]; !ok {
		return "", fmt.Errorf("class not found: %s", class)
	}

	result := a.RelevantDependents(class)
	var b strings.Builder
	if result.UnboundedImpact() {
		fmt.Fprintf(&b, "Changing %s requires a full rebuild.\n", class)
		return b.String(), nil
	}

	classes := result.DependentClasses()
	fmt.Fprintf(&b, "Changing %s requires recompiling %d classes:\n", class, len(classes))
	for _, name := range classes {
		fmt.Fprintf(&b, "  %s", name)
		if file, ok := snapshot.FilesByClass[name]; ok {
			fmt.Fprintf(&b, "  (%s)", file)
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *App) GenerateOutputs(snapshot *analyzer.Snapshot, plan Plan, passNumber int) error {
	attrs := map[string]string{
		"project":  a.Config.Project.Name,
		"revision": a.revision,
		"pass":     fmt.Sprintf("%d", passNumber),
	}

	if a.Config.Output.DOT != "" {
		target, err := a.resolveTarget(a.Config.Output.DOT, attrs, "dot")
		if err != nil {
			return err
		}
		dot, err := output.NewDOTGenerator(snapshot.Graph).Generate(plan.Classes)
		if err != nil {
			return fmt.Errorf("generate DOT output: %w", err)
		}
		if err := writeArtifact(target, dot); err != nil {
			return fmt.Errorf("write DOT output %q: %w", target, err)
		}
	}

	if a.Config.Output.TSV != "" {
		target, err := a.resolveTarget(a.Config.Output.TSV, attrs, "tsv")
		if err != nil {
			return err
		}
		tsv, err := output.NewTSVGenerator(snapshot.Graph).Generate()
		if err != nil {
			return fmt.Errorf("generate TSV output: %w", err)
		}
		if err := writeArtifact(target, tsv); err != nil {
			return fmt.Errorf("write TSV output %q: %w", target, err)
		}
	}

	if a.Config.Output.Plan != "" {
		target, err := a.resolveTarget(a.Config.Output.Plan, attrs, "tsv")
		if err != nil {
			return err
		}
		planTSV, err := output.NewTSVGenerator(snapshot.Graph).GeneratePlan(plan.FullRebuild, plan.Classes, snapshot.FilesByClass)
		if err != nil {
			return fmt.Errorf("generate plan output: %w", err)
		}
		if err := writeArtifact(target, planTSV); err != nil {
			return fmt.Errorf("write plan output %q: %w", target, err)
		}
	}

	return nil
}

func (a *App) resolveTarget(raw string, attrs map[string]string, ext string) (string, error) {
	attrs["ext"] = ext
	target, err := pattern.New(raw).Substitute(attrs)
	if err != nil {
		return "", fmt.Errorf("resolve output target: %w", err)
	}
	return target, nil
}

func writeArtifact(path, content string) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(content), 0644)
}

func (a *App) PrintSummary(snapshot *analyzer.Snapshot, plan Plan) {
	fmt.Println(strings.Repeat("-", 40))
	fmt.Printf("Pass: %d files changed, %d classes, %d edges in %v\n",
		plan.ChangedFiles, snapshot.Graph.ClassCount(), snapshot.Graph.EdgeCount(), plan.Duration)

	if plan.FullRebuild {
		fmt.Println("⚠️  FULL REBUILD REQUIRED (unbounded impact)")
	} else if len(plan.Classes) > 0 {
		fmt.Printf("🔨 %d classes to recompile:\n", len(plan.Classes))
		for _, class := range plan.Classes {
			fmt.Printf("   %s\n", class)
		}
	} else {
		fmt.Println("✅ Nothing to recompile.")
	}

	if unbounded := snapshot.Graph.UnboundedCount(); unbounded > 0 {
		fmt.Printf("📌 %d classes have unbounded impact\n", unbounded)
	}
	fmt.Println(strings.Repeat("-", 40))
}

func (a *App) emitUpdate(update Update) {
	a.updateMu.RLock()
	handler := a.onUpdate
	a.updateMu.RUnlock()
	if handler != nil {
		handler(update)
	}
}

// Health implements observability.HealthSource.
func (a *App) Health() observability.HealthStatus {
	a.passMu.Lock()
	defer a.passMu.Unlock()

	status := "up"
	if a.passCount == 0 {
		status = "starting"
	}
	return observability.HealthStatus{
		Status:    status,
		LastPass:  a.lastPass,
		PassCount: a.passCount,
	}
}

func (a *App) StartWatcher() (*watcher.Watcher, error) {
	w, err := watcher.NewWatcher(
		a.Config.Watch.Debounce,
		a.Config.Exclude.Dirs,
		a.Config.Exclude.Files,
		a.HandleChanges,
	)
	if err != nil {
		return nil, err
	}
	if err := w.Watch(a.Config.SourceRoots); err != nil {
		w.Close()
		return nil, err
	}
	return w, nil
}
