// Package adapter contains the infrastructure adapters of the fuzzer: the
// target executor, trace and profile readers, program storage and metrics.
package adapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	m "distfuzz.dev/pkg/distfuzz/internal/model"
)

// ProgramExt is the file extension of lifted programs.
const ProgramExt = ".fzil"

// Output subdirectories.
const (
	CorpusDir  = "corpus"
	CrashesDir = "crashes"
)

// ProgramStore persists programs and opaque state blobs under an output
// directory.
type ProgramStore interface {
	// SaveProgram writes p into subdir, named after its content hash, and
	// returns the path.
	SaveProgram(ctx context.Context, subdir string, p *m.Program) (m.Path, error)
	// LoadProgram parses a single program file.
	LoadProgram(ctx context.Context, path m.Path) (*m.Program, error)
	// LoadSeeds parses every *.fzil file directly inside dir. Unparsable
	// files are skipped with a warning.
	LoadSeeds(ctx context.Context, dir m.Path) ([]*m.Program, error)
	// LoadState returns the blob at name, or nil when it does not exist.
	LoadState(ctx context.Context, name string) ([]byte, error)
	// SaveState atomically replaces the blob at name.
	SaveState(ctx context.Context, name string, data []byte) error
	Root() m.Path
}

// LocalProgramStore stores programs on the local filesystem.
type LocalProgramStore struct {
	root string
}

// NewLocalProgramStore creates root and returns a store writing below it.
func NewLocalProgramStore(root string) (*LocalProgramStore, error) {
	for _, dir := range []string{root, filepath.Join(root, CorpusDir), filepath.Join(root, CrashesDir)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("create output dir %s: %w", dir, err)
		}
	}

	return &LocalProgramStore{root: root}, nil
}

// Root returns the output directory.
func (s *LocalProgramStore) Root() m.Path {
	return m.Path(s.root)
}

// SaveProgram writes the lifted program. Identical programs map to the same
// file, so saving twice is harmless.
func (s *LocalProgramStore) SaveProgram(ctx context.Context, subdir string, p *m.Program) (m.Path, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	text := m.Lift(p)
	name := fmt.Sprintf("%x%s", sha256.Sum256([]byte(text)), ProgramExt)
	path := filepath.Join(s.root, subdir, name)

	var b bytes.Buffer

	if contributors := p.Contributors(); len(contributors) > 0 {
		names := make([]string, len(contributors))
		for i, c := range contributors {
			names[i] = string(c)
		}

		fmt.Fprintf(&b, "# contributors: %s\n", strings.Join(names, ", "))
	}

	b.WriteString(text)

	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		return "", fmt.Errorf("save program: %w", err)
	}

	return m.Path(path), nil
}

// LoadProgram reads and parses path.
func (s *LocalProgramStore) LoadProgram(ctx context.Context, path m.Path) (*m.Program, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	file, err := os.Open(string(path))
	if err != nil {
		return nil, fmt.Errorf("open program: %w", err)
	}
	defer file.Close()

	p, err := m.ParseProgram(file)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return p, nil
}

// LoadSeeds loads the programs in dir in file name order.
func (s *LocalProgramStore) LoadSeeds(ctx context.Context, dir m.Path) ([]*m.Program, error) {
	entries, err := os.ReadDir(string(dir))
	if err != nil {
		return nil, fmt.Errorf("read seeds dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ProgramExt {
			continue
		}

		names = append(names, entry.Name())
	}

	sort.Strings(names)

	seeds := make([]*m.Program, 0, len(names))

	for _, name := range names {
		p, err := s.LoadProgram(ctx, m.Path(filepath.Join(string(dir), name)))
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			slog.Warn("Skipping unparsable seed", "file", name, "error", err)

			continue
		}

		if p.Size() == 0 {
			continue
		}

		seeds = append(seeds, p)
	}

	slog.Debug("Loaded seeds", "dir", dir, "count", len(seeds))

	return seeds, nil
}

// LoadState returns nil, nil when the blob is absent.
func (s *LocalProgramStore) LoadState(ctx context.Context, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filepath.Join(s.root, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("load state %s: %w", name, err)
	}

	return data, nil
}

// SaveState writes to a temporary file and renames it over name. It does
// not check ctx so state can be saved during shutdown.
func (s *LocalProgramStore) SaveState(_ context.Context, name string, data []byte) error {
	tmp, err := os.CreateTemp(s.root, name+".*.tmp")
	if err != nil {
		return fmt.Errorf("save state %s: %w", name, err)
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("save state %s: %w", name, err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save state %s: %w", name, err)
	}

	if err := os.Rename(tmp.Name(), filepath.Join(s.root, name)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("save state %s: %w", name, err)
	}

	return nil
}
