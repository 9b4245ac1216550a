package mercanopy

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Loader retrieves document text. Build awaits it for every document that
// needs reading; table mutation resumes only after all texts are in.
type Loader interface {
	Load(ctx context.Context, uri string) (string, error)
}

// FileLoader reads file:// URIs from disk.
type FileLoader struct{}

func (FileLoader) Load(ctx context.Context, uri string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := URIToPath(uri)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return string(data), nil
}

// FSLoader reads URIs from an fs.FS. The URI path, without its leading
// slash, is the name within the file system.
type FSLoader struct {
	FS fs.FS
}

func (l FSLoader) Load(ctx context.Context, uri string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path, err := URIToPath(uri)
	if err != nil {
		return "", err
	}
	data, err := fs.ReadFile(l.FS, strings.TrimPrefix(filepath.ToSlash(path), "/"))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", uri, err)
	}
	return string(data), nil
}

// ModuleLocator maps an imported module name to the URI of the document
// that defines it. It reports false when no such document exists.
type ModuleLocator func(module string) (string, bool)

// DirLocator looks for module files directly under root. For module a.b
// with extension .m it tries a.b.m, then b.m.
func DirLocator(root string, extensions []string) ModuleLocator {
	return func(module string) (string, bool) {
		names := []string{module}
		if i := strings.LastIndexByte(module, '.'); i >= 0 {
			names = append(names, module[i+1:])
		}
		for _, name := range names {
			for _, ext := range extensions {
				path := filepath.Join(root, name+ext)
				if info, err := os.Stat(path); err == nil && !info.IsDir() {
					return PathToURI(path), true
				}
			}
		}
		return "", false
	}
}

// PathToURI converts a file path to a file:// URI. Relative paths are made
// absolute first.
func PathToURI(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	u := url.URL{Scheme: "file", Path: filepath.ToSlash(path)}
	return u.String()
}

// URIToPath converts a file:// URI back to a file path.
func URIToPath(uri string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parse uri %q: %w", uri, err)
	}
	if u.Scheme != "file" {
		return "", fmt.Errorf("unsupported uri scheme %q", u.Scheme)
	}
	return filepath.FromSlash(u.Path), nil
}
