// Package streams provides named byte streams for tables and outputs.
//
// Paths are slash separated and relative to the provider root, for example
// "Table/WebRequest.csv" or "Query/Errors.xql". The default implementation is
// backed by an afero filesystem so the same code serves disk directories and
// in-memory trees.
package streams

import (
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/kbukum/xform/errors"
)

// Well known stream names and folders.
const (
	Stdout      = "stdout"
	TableFolder = "Table"
	QueryFolder = "Query"
)

// Provider opens streams by name.
type Provider interface {
	// OpenRead opens an existing stream.
	OpenRead(name string) (io.ReadCloser, error)
	// OpenWrite creates or truncates a stream, creating parent folders.
	OpenWrite(name string) (io.WriteCloser, error)
	// Exists reports whether a stream exists.
	Exists(name string) bool
	// List returns the base names (without extension) of the streams in
	// folder that end with ext, sorted.
	List(folder, ext string) ([]string, error)
	// Stdout is the console destination.
	Stdout() io.Writer
}

// FileSystem is a Provider over an afero filesystem.
type FileSystem struct {
	fs     afero.Fs
	stdout io.Writer
}

// New creates a provider over fs that writes console output to stdout.
func New(fs afero.Fs, stdout io.Writer) *FileSystem {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &FileSystem{fs: fs, stdout: stdout}
}

// NewOS creates a provider rooted at dir on the local disk.
func NewOS(dir string) *FileSystem {
	return New(afero.NewBasePathFs(afero.NewOsFs(), dir), os.Stdout)
}

// NewMemory creates an empty in-memory provider.
func NewMemory() *FileSystem {
	return New(afero.NewMemMapFs(), io.Discard)
}

// Fs returns the underlying filesystem.
func (f *FileSystem) Fs() afero.Fs { return f.fs }

func (f *FileSystem) OpenRead(name string) (io.ReadCloser, error) {
	file, err := f.fs.Open(clean(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFound("stream", name).WithCause(err)
		}
		return nil, errors.IO("open", name, err)
	}
	return file, nil
}

func (f *FileSystem) OpenWrite(name string) (io.WriteCloser, error) {
	p := clean(name)
	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := f.fs.MkdirAll(dir, 0o755); err != nil {
			return nil, errors.IO("mkdir", dir, err)
		}
	}
	file, err := f.fs.OpenFile(p, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, errors.IO("create", name, err)
	}
	return file, nil
}

func (f *FileSystem) Exists(name string) bool {
	ok, err := afero.Exists(f.fs, clean(name))
	return err == nil && ok
}

func (f *FileSystem) List(folder, ext string) ([]string, error) {
	infos, err := afero.ReadDir(f.fs, clean(folder))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.IO("list", folder, err)
	}
	var names []string
	for _, info := range infos {
		if info.IsDir() || !strings.EqualFold(path.Ext(info.Name()), ext) {
			continue
		}
		names = append(names, strings.TrimSuffix(info.Name(), path.Ext(info.Name())))
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileSystem) Stdout() io.Writer { return f.stdout }

// WriteString writes text to a stream, replacing any previous content.
func WriteString(p Provider, name, text string) error {
	w, err := p.OpenWrite(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, text); err != nil {
		w.Close()
		return errors.IO("write", name, err)
	}
	if err := w.Close(); err != nil {
		return errors.IO("close", name, err)
	}
	return nil
}

// ReadString reads a whole stream as text.
func ReadString(p Provider, name string) (string, error) {
	r, err := p.OpenRead(name)
	if err != nil {
		return "", err
	}
	defer r.Close()
	b, err := io.ReadAll(r)
	if err != nil {
		return "", errors.IO("read", name, err)
	}
	return string(b), nil
}

func clean(name string) string {
	return path.Clean("/" + strings.ReplaceAll(name, `\`, "/"))
}
