// Package codebase keeps the workspace state of the language server: the
// content, parse tree and resolved includes of every known SLS file, and
// the state module metadata backing completion.
package codebase

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/dhamidi/sls-lsp/sls"
	"github.com/dhamidi/sls-lsp/sls/parser"
)

type Codebase struct {
	mu          sync.RWMutex
	rootDir     string
	files       map[string]*FileInfo
	completions map[string]*StateNameCompletion
}

type FileInfo struct {
	Path    string
	Content []byte
	Tree    *parser.Tree
	// Includes maps each include entry of the tree to the file it
	// resolves to; unresolvable entries are absent.
	Includes map[string]string
	ParseErr error
}

func New(rootDir string) *Codebase {
	return &Codebase{
		rootDir: rootDir,
		files:   make(map[string]*FileInfo),
	}
}

func (c *Codebase) RootDir() string {
	return c.rootDir
}

// SetCompletions installs the state module metadata used for completion.
func (c *Codebase) SetCompletions(completions map[string]*StateNameCompletion) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.completions = completions
}

func (c *Codebase) Completions() map[string]*StateNameCompletion {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.completions
}

func (c *Codebase) ScanAll() error {
	return filepath.Walk(c.rootDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return nil
		}
		if filepath.Ext(path) == ".sls" {
			c.ScanFile(path)
		}
		return nil
	})
}

func (c *Codebase) ScanFile(path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return c.UpdateFile(path, content)
}

func (c *Codebase) UpdateFile(path string, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	root := sls.GetRoot(path)
	if root == "" {
		root = c.rootDir
	}
	tree, parseErr := sls.Parse(root, string(content))

	includes := make(map[string]string)
	if tree != nil && tree.Includes != nil {
		top := sls.GetTop(path)
		if top == "" {
			top = root
		}
		for _, include := range tree.Includes.Includes {
			if resolved := include.GetFile(top); resolved != "" {
				includes[include.Value] = resolved
			}
		}
	}

	c.files[path] = &FileInfo{
		Path:     path,
		Content:  content,
		Tree:     tree,
		Includes: includes,
		ParseErr: parseErr,
	}
	return parseErr
}

func (c *Codebase) RemoveFile(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.files, path)
}

func (c *Codebase) GetFile(path string) *FileInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.files[path]
}

func (c *Codebase) GetTree(path string) *parser.Tree {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if file := c.files[path]; file != nil {
		return file.Tree
	}
	return nil
}

// FindStateID locates a top-level state with the given identifier,
// searching the starting file first and then every file its include
// entries resolve to. Only an unambiguous match counts.
func (c *Codebase) FindStateID(id, startPath string) (string, *parser.StateNode) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	start := c.files[startPath]
	if start == nil || start.Tree == nil {
		return "", nil
	}

	candidates := []*FileInfo{start}
	for _, included := range start.Includes {
		if file := c.files[included]; file != nil && file.Tree != nil {
			candidates = append(candidates, file)
		}
	}

	for _, file := range candidates {
		var matches []*parser.StateNode
		for _, state := range file.Tree.States {
			if state.Identifier == id {
				matches = append(matches, state)
			}
		}
		if len(matches) == 1 {
			return file.Path, matches[0]
		}
	}
	return "", nil
}

// IsTopFile reports whether path names a top.sls file, whose parameter
// entries complete to sls file names rather than state parameters.
func IsTopFile(path string) bool {
	return filepath.Base(path) == "top.sls"
}
