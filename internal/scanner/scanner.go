// Package scanner walks the local filesystem to discover files, hashes
// them, and classifies each as changed or unchanged against the hash cache.
package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"
	"golang.org/x/text/unicode/norm"

	"github.com/tonimelisma/internxt-backup/internal/hashcache"
)

// Scanner produces the set of FileRecords needing upload for one source
// tree.
type Scanner struct {
	sourceDir       string
	statePath       string
	cachePath       string
	forceUpload     bool
	scanConcurrency int
	logger          *slog.Logger

	cache *hashcache.Cache
	state *State
}

// Option configures Initialize.
type Option func(*Scanner)

// WithScanConcurrency bounds parallel hashing during the walk.
// Zero or one means serial, preserving deterministic ordering by default.
func WithScanConcurrency(n int) Option {
	return func(s *Scanner) { s.scanConcurrency = n }
}

// WithStatePath overrides the default scanner-state location.
func WithStatePath(path string) Option {
	return func(s *Scanner) { s.statePath = path }
}

// WithCachePath overrides the default hash-cache location.
func WithCachePath(path string) Option {
	return func(s *Scanner) { s.cachePath = path }
}

// New creates and Initializes a Scanner for sourceDir: it clears any prior in-memory scanner state and prepares
// the hash cache, ready for Scan.
func New(sourceDir string, logger *slog.Logger, forceUpload bool, opts ...Option) *Scanner {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	s := &Scanner{
		sourceDir:   sourceDir,
		statePath:   DefaultStatePath(),
		cachePath:   hashcache.DefaultPath(),
		forceUpload: forceUpload,
		logger:      logger,
		state:       newState(), // Initialize clears scanner state.
	}

	for _, opt := range opts {
		opt(s)
	}

	s.cache = hashcache.New(s.cachePath, logger)
	s.cache.Load()

	return s
}

// Scan walks sourceDir, hashes every regular file, and classifies each
// against the hash cache.
func (s *Scanner) Scan(ctx context.Context) (*Result, error) {
	root, err := filepath.Abs(s.sourceDir)
	if err != nil {
		return nil, fmt.Errorf("scanner: resolving source root: %w", err)
	}

	if resolved, err := filepath.EvalSymlinks(root); err == nil {
		root = resolved
	}

	s.state = loadState(s.statePath) // step 2: best-effort load.

	paths, err := s.walk(root)
	if err != nil {
		return nil, err
	}

	type hashed struct {
		relPath string
		absPath string
		size    int64
		digest  string
		err     error
	}

	results := make([]hashed, len(paths))

	concurrency := s.scanConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, p := range paths {
		i, p := i, p

		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			info, statErr := os.Stat(p)
			if statErr != nil {
				results[i] = hashed{absPath: p, err: statErr}

				return nil //nolint:nilerr // per-file stat errors are reported, not fatal
			}

			digest, hashErr := hashcache.HashFile(p)
			results[i] = hashed{
				absPath: p,
				size:    info.Size(),
				digest:  digest,
				err:     hashErr,
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("scanner: walk canceled: %w", err)
	}

	res := &Result{}

	// Serial consultation of the hash cache: HashCache does not guarantee
	// safety for concurrent calls on distinct paths, so this loop — unlike the hashing above — never runs
	// in parallel.
	for _, h := range results {
		if h.err != nil {
			s.logger.Warn("scanner: failed to read file, skipping",
				slog.String("path", h.absPath), slog.Any("error", h.err))

			continue
		}

		rel, err := filepath.Rel(root, h.absPath)
		if err != nil {
			s.logger.Warn("scanner: failed to compute relative path, skipping",
				slog.String("path", h.absPath), slog.Any("error", err))

			continue
		}

		rel = normalizeRelPath(rel)

		changed := s.cache.Note(h.absPath, h.digest)
		if s.forceUpload {
			changed = true
		}

		state := Unchanged
		if changed {
			state = Changed
		}

		record := FileRecord{
			RelativePath:  rel,
			AbsolutePath:  h.absPath,
			SizeBytes:     h.size,
			ContentDigest: h.digest,
			ChangeState:   state,
		}

		res.AllFiles = append(res.AllFiles, record)
		res.TotalBytes += h.size

		if changed {
			res.FilesToUpload = append(res.FilesToUpload, record)
		}
	}

	sort.Slice(res.AllFiles, func(i, j int) bool { return res.AllFiles[i].RelativePath < res.AllFiles[j].RelativePath })
	sort.Slice(res.FilesToUpload, func(i, j int) bool {
		return res.FilesToUpload[i].RelativePath < res.FilesToUpload[j].RelativePath
	})

	res.TotalMB = float64(res.TotalBytes) / (1024 * 1024)

	return res, nil
}

// walk performs the recursive directory walk, returning every regular
// file's absolute path in a stable, depth-first, lexical order so the
// serial consultation phase is deterministic regardless of scan
// concurrency.
func (s *Scanner) walk(root string) ([]string, error) {
	var paths []string

	stateBase := filepath.Base(s.statePath)

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			s.logger.Warn("scanner: failed to read directory entry, skipping",
				slog.String("path", path), slog.Any("error", err))

			return nil
		}

		name := d.Name()
		if path != root && strings.HasPrefix(name, ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}

			return nil
		}

		if name == stateBase {
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if d.Type().IsRegular() {
			paths = append(paths, path)
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scanner: walking %s: %w", root, err)
	}

	return paths, nil
}

// normalizeRelPath forward-slash normalizes and NFC-normalizes rel for
// cross-platform stability.
func normalizeRelPath(rel string) string {
	rel = filepath.ToSlash(rel)

	return norm.NFC.String(rel)
}

// UpdateFileState records a successfully uploaded file's digest against its
// relative path.
func (s *Scanner) UpdateFileState(relativePath, digest string) {
	if s.state.Files == nil {
		s.state.Files = make(map[string]string)
	}

	s.state.Files[relativePath] = digest
}

// RecordCompletion stamps LastRun with the current time.
func (s *Scanner) RecordCompletion() {
	s.state.LastRun = nowISO()
}

// SaveState persists the scanner state to disk.
func (s *Scanner) SaveState() error {
	return saveState(s.statePath, s.state)
}

// Cache exposes the underlying hash cache, e.g. so the orchestrator can
// force a final Save after the run settles.
func (s *Scanner) Cache() *hashcache.Cache { return s.cache }
