package storage

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/starford/notegraph/internal/checksum"
)

// FS is a Provider over a directory of the local file system.
type FS struct {
	root string
}

// NewFS opens the existing directory root as a vault.
func NewFS(root string) (*FS, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolve root: %w", err)
	}
	info, err := os.Stat(abs)
	switch {
	case err != nil:
		return nil, fmt.Errorf("storage: open vault: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("storage: vault %s is not a directory", abs)
	}
	return &FS{root: abs}, nil
}

// Root returns the absolute path of the vault directory.
func (f *FS) Root() string { return f.root }

// abs maps a vault path to the file system. Absolute paths and paths that
// climb out of the vault are refused.
func (f *FS) abs(rel string) (string, error) {
	if rel == "" || rel == "." {
		return f.root, nil
	}
	if !filepath.IsLocal(rel) {
		return "", fmt.Errorf("storage: %q is outside the vault", rel)
	}
	return filepath.Join(f.root, rel), nil
}

// List walks dir and reports the files match accepts, with the checksum of
// their content.
func (f *FS) List(dir string, match Match) ([]FileInfo, error) {
	base, err := f.abs(dir)
	if err != nil {
		return nil, err
	}
	var out []FileInfo
	walk := func(p string, d fs.DirEntry, err error) error {
		if err != nil || p == base {
			return err
		}
		rel, err := filepath.Rel(f.root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if !match(rel, true) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !match(rel, false) {
			return nil
		}
		info, err := f.stat(p, rel)
		if err != nil {
			return err
		}
		out = append(out, info)
		return nil
	}
	if err := filepath.WalkDir(base, walk); err != nil {
		return nil, fmt.Errorf("storage: list %s: %w", dir, err)
	}
	return out, nil
}

func (f *FS) stat(p, rel string) (FileInfo, error) {
	data, err := os.ReadFile(p)
	if err != nil {
		return FileInfo{}, err
	}
	st, err := os.Stat(p)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{Path: rel, Checksum: checksum.Sum(data), UpdatedAt: st.ModTime()}, nil
}

// Read returns the content of a vault file.
func (f *FS) Read(path string) ([]byte, error) {
	p, err := f.abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return nil, fmt.Errorf("storage: read %s: %w", path, err)
	}
	return data, nil
}

// Exists reports whether a regular file is present at path.
func (f *FS) Exists(path string) bool {
	p, err := f.abs(path)
	if err != nil {
		return false
	}
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

// Write stores content through a synced temporary file in the target
// directory, renamed over path, so readers never see a partial file.
func (f *FS) Write(path string, content []byte) (err error) {
	p, err := f.abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, ".notegraph-tmp-*")
	if err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.Write(content); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("storage: sync %s: %w", path, err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	if err = os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("storage: write %s: %w", path, err)
	}
	return nil
}

// Delete removes a vault file.
func (f *FS) Delete(path string) error {
	p, err := f.abs(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil {
		return fmt.Errorf("storage: delete %s: %w", path, err)
	}
	return nil
}

// Move renames a vault file, creating the directories of newPath.
func (f *FS) Move(oldPath, newPath string) error {
	from, err := f.abs(oldPath)
	if err != nil {
		return err
	}
	to, err := f.abs(newPath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(to), 0o755); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, err)
	}
	if err := os.Rename(from, to); err != nil {
		return fmt.Errorf("storage: move %s: %w", oldPath, err)
	}
	return nil
}
