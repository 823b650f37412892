// Package pathtree implements the virtual path algebra of the drive tree.
//
// Directory paths are POSIX-like, always absolute and normalized: no trailing
// slash except the root "/", no empty, "." or ".." segments. Descendant
// matching is segment-wise, so "/docs2" is never considered inside "/docs".
package pathtree

import (
	"fmt"
	"path"
	"strings"
)

// Root is the top of every owner's tree.
const Root = "/"

// Normalize cleans a directory path into its canonical form.
// An empty path is the root. Relative paths are anchored at the root.
// Paths that try to climb above the root are rejected.
func Normalize(dirPath string) (string, error) {
	if dirPath == "" {
		return Root, nil
	}
	if strings.ContainsRune(dirPath, 0) {
		return "", fmt.Errorf("path contains a NUL byte")
	}
	for _, seg := range strings.Split(dirPath, "/") {
		if seg == ".." {
			return "", fmt.Errorf("path must not contain '..': %s", dirPath)
		}
	}
	return path.Clean("/" + dirPath), nil
}

// ValidateName checks that name can be used as a single path segment.
func ValidateName(name string) error {
	switch {
	case name == "":
		return fmt.Errorf("name is required")
	case name == "." || name == "..":
		return fmt.Errorf("invalid name: %s", name)
	case strings.ContainsAny(name, "/\x00"):
		return fmt.Errorf("name must not contain '/': %s", name)
	}
	return nil
}

// Join returns the full path of an entry called name inside dirPath.
// dirPath must already be normalized.
func Join(dirPath, name string) string {
	if dirPath == Root {
		return Root + name
	}
	return dirPath + "/" + name
}

// Split is the inverse of Join: it returns the parent directory and the last
// segment of a normalized full path. Split of the root returns ("/", "").
func Split(fullPath string) (dirPath, name string) {
	if fullPath == Root {
		return Root, ""
	}
	i := strings.LastIndexByte(fullPath, '/')
	if i == 0 {
		return Root, fullPath[1:]
	}
	return fullPath[:i], fullPath[i+1:]
}

// Segments splits a normalized path into its segments. The root has none.
func Segments(p string) []string {
	if p == Root || p == "" {
		return nil
	}
	return strings.Split(strings.TrimPrefix(p, "/"), "/")
}

// IsWithin reports whether dirPath is ancestor itself or lies beneath it,
// comparing whole segments.
func IsWithin(dirPath, ancestor string) bool {
	if ancestor == Root {
		return strings.HasPrefix(dirPath, Root)
	}
	a := Segments(ancestor)
	d := Segments(dirPath)
	if len(d) < len(a) {
		return false
	}
	for i := range a {
		if a[i] != d[i] {
			return false
		}
	}
	return true
}

// Rebase rewrites dirPath, which must lie within from, so that it lies within
// to instead. Paths outside from are returned unchanged.
func Rebase(dirPath, from, to string) string {
	if !IsWithin(dirPath, from) {
		return dirPath
	}
	rest := Segments(dirPath)[len(Segments(from)):]
	if len(rest) == 0 {
		return to
	}
	if to == Root {
		return Root + strings.Join(rest, "/")
	}
	return to + "/" + strings.Join(rest, "/")
}

// Ancestors returns the full paths of every directory that contains an entry
// stored in dirPath, nearest first. The root itself is not an entry and is
// never returned.
//
//	Ancestors("/a/b") == []string{"/a/b", "/a"}
func Ancestors(dirPath string) []string {
	segs := Segments(dirPath)
	out := make([]string, 0, len(segs))
	for i := len(segs); i > 0; i-- {
		out = append(out, Root+strings.Join(segs[:i], "/"))
	}
	return out
}

// Ext returns the extension of name without the leading dot, or "" when
// there is none. Dotfiles such as ".env" have no extension.
func Ext(name string) string {
	ext := path.Ext(name)
	if ext == name || ext == "" {
		return ""
	}
	return strings.TrimPrefix(ext, ".")
}

// LikePrefix returns a SQL LIKE pattern matching every path strictly beneath
// fullPath, escaping LIKE metacharacters with '\'. Callers must still confirm
// candidates with IsWithin.
func LikePrefix(fullPath string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	if fullPath == Root {
		return "/%"
	}
	return r.Replace(fullPath) + "/%"
}
