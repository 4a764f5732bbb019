// Package scanner enumerates candidate automation-definition files under a workspace root.
package scanner

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/askiada/go-consolidator/internal/logging"
	"github.com/askiada/go-consolidator/pkg/consolidator/model"
)

var (
	// DefaultExtensions are the pipeline-descriptor and markdown extensions scanned by default.
	DefaultExtensions = []string{".yml", ".yaml", ".md", ".workflow"}
	// DefaultExclude are directory names skipped at any depth.
	DefaultExclude = []string{
		"node_modules", ".venv", ".git", "build", "dist",
		"__pycache__", ".pytest_cache", ".vscode", ".idea",
	}
)

// Scanner walks a workspace tree. A Scanner holds no walk state, every call to Walk starts a
// fresh traversal.
type Scanner struct {
	root       string
	exclude    map[string]struct{}
	extensions map[string]struct{}
	logger     *slog.Logger
}

// Option configures a Scanner.
type Option func(*Scanner)

// WithExclude replaces the set of excluded directory names.
func WithExclude(dirs ...string) Option {
	return func(s *Scanner) {
		s.exclude = make(map[string]struct{}, len(dirs))
		for _, dir := range dirs {
			s.exclude[dir] = struct{}{}
		}
	}
}

// WithExtensions replaces the extension allow-list. Extensions are matched case-insensitively
// and may be given with or without the leading dot.
func WithExtensions(exts ...string) Option {
	return func(s *Scanner) {
		s.extensions = make(map[string]struct{}, len(exts))
		for _, ext := range exts {
			ext = strings.ToLower(strings.TrimSpace(ext))
			if ext == "" {
				continue
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			s.extensions[ext] = struct{}{}
		}
	}
}

// WithLogger sets the logger used for skipped directories.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scanner) {
		s.logger = logger
	}
}

// New creates a scanner for root.
func New(root string, opts ...Option) *Scanner {
	s := &Scanner{root: root}
	WithExclude(DefaultExclude...)(s)
	WithExtensions(DefaultExtensions...)(s)
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logging.WithModule("scanner")
	}

	return s
}

// Root returns the workspace root.
func (s *Scanner) Root() string {
	return s.root
}

// CheckRoot returns model.ErrPathNotFound when the root does not exist.
func (s *Scanner) CheckRoot() error {
	_, err := os.Stat(s.root)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(model.ErrPathNotFound, "workspace root %s", s.root)
	}

	return errors.Wrapf(err, "unable to stat workspace root %s", s.root)
}

// Walk calls fn for every matching file. Directories are read in lexical order so an
// unchanged tree is always walked in the same order. Symlinked directories are followed once;
// a directory whose real path was already visited is pruned, which breaks symlink cycles.
// Unreadable directories are logged and skipped. Only regular files are reported, so FIFOs,
// sockets and devices never reach fn. Walk stops on the first error returned by fn or when
// ctx is done.
func (s *Scanner) Walk(ctx context.Context, fn func(path string) error) error {
	err := s.CheckRoot()
	if err != nil {
		return err
	}

	info, err := os.Stat(s.root)
	if err != nil {
		return errors.Wrapf(err, "unable to stat workspace root %s", s.root)
	}
	if !info.IsDir() {
		if info.Mode().IsRegular() && s.matches(filepath.Base(s.root)) {
			return fn(s.root)
		}

		return nil
	}

	realRoot, err := filepath.EvalSymlinks(s.root)
	if err != nil {
		return errors.Wrapf(err, "unable to resolve workspace root %s", s.root)
	}
	visited := map[string]struct{}{realRoot: {}}

	return s.walkDir(ctx, s.root, visited, fn)
}

// Stream sends every matching path to out. It is meant to be the root step of a pipeline.
func (s *Scanner) Stream(ctx context.Context, out chan<- string) error {
	return s.Walk(ctx, func(path string) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case out <- path:
			return nil
		}
	})
}

func (s *Scanner) walkDir(ctx context.Context, dir string, visited map[string]struct{}, fn func(path string) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		s.logger.Warn("skipping unreadable directory", "dir", dir, "error", err)

		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		mode := entry.Type()
		if mode&fs.ModeSymlink != 0 {
			target, err := os.Stat(path)
			if err != nil {
				s.logger.Debug("skipping broken symlink", "path", path, "error", err)

				continue
			}
			mode = target.Mode().Type()
		}

		if !mode.IsDir() {
			if !mode.IsRegular() || !s.matches(entry.Name()) {
				continue
			}
			err := fn(path)
			if err != nil {
				return err
			}

			continue
		}

		if _, skip := s.exclude[entry.Name()]; skip {
			continue
		}
		realPath, err := filepath.EvalSymlinks(path)
		if err != nil {
			s.logger.Warn("skipping unresolvable directory", "dir", path, "error", err)

			continue
		}
		if _, seen := visited[realPath]; seen {
			s.logger.Debug("pruning already visited directory", "dir", path, "real", realPath)

			continue
		}
		visited[realPath] = struct{}{}

		err = s.walkDir(ctx, path, visited, fn)
		if err != nil {
			return err
		}
	}

	return nil
}

func (s *Scanner) matches(name string) bool {
	_, ok := s.extensions[strings.ToLower(filepath.Ext(name))]

	return ok
}
