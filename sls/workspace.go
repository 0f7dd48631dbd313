package sls

import (
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GetTop walks up from path looking for the directory holding a top.sls
// file, the conventional root of a states tree. Returns "" when no such
// directory exists.
func GetTop(path string) string {
	dir := filepath.Dir(path)
	for dir != "" && dir != "." {
		if info, err := os.Stat(filepath.Join(dir, "top.sls")); err == nil && !info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
	return ""
}

// GetRoot resolves the workspace root for path: the states tree top when
// one exists, else the enclosing git worktree.
func GetRoot(path string) string {
	if top := GetTop(path); top != "" {
		return top
	}
	cmd := exec.Command("git", "rev-parse", "--show-toplevel")
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}

// GetSlsIncludes lists the dotted names of every .sls file under the
// workspace root of path, the candidate values for include entries.
func GetSlsIncludes(path string) []string {
	top := GetRoot(path)
	if top == "" {
		return nil
	}
	var names []string
	filepath.WalkDir(top, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !strings.HasSuffix(d.Name(), ".sls") {
			return nil
		}
		rel, err := filepath.Rel(top, p)
		if err != nil {
			return nil
		}
		if name := dottedName(rel); name != "" {
			names = append(names, name)
		}
		return nil
	})
	return names
}

// dottedName converts a path relative to the states top into the dotted
// form used by include entries: web/server.sls becomes web.server and
// web/init.sls becomes web.
func dottedName(rel string) string {
	rel = strings.TrimSuffix(rel, ".sls")
	parts := strings.Split(rel, string(filepath.Separator))
	if parts[len(parts)-1] == "init" {
		parts = parts[:len(parts)-1]
	}
	return strings.Join(parts, ".")
}

// PositionToIndex converts a (line, column) pair into a byte offset into
// text.
func PositionToIndex(text string, line, col int) int {
	index := 0
	for i, l := range strings.SplitAfter(text, "\n") {
		if i >= line {
			break
		}
		index += len(l)
	}
	return index + col
}
