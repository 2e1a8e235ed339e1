package output

import (
	"path"

	"github.com/disiqueira/gotree/v3"
)

// IncludedTree renders the entries of a document as a directory tree.
type IncludedTree struct {
	tree        gotree.Tree
	directories map[string]gotree.Tree
}

// NewIncludedTree starts a tree labelled with rootLabel.
func NewIncludedTree(rootLabel string) IncludedTree {
	return IncludedTree{tree: gotree.New(rootLabel), directories: make(map[string]gotree.Tree)}
}

func (included IncludedTree) directory(directoryPath string) gotree.Tree {
	if directoryPath == "." || directoryPath == "" {
		return included.tree
	}
	node := included.directories[directoryPath]
	if node == nil {
		parent := included.directory(path.Dir(directoryPath))
		node = parent.Add(path.Base(directoryPath))
		included.directories[directoryPath] = node
	}
	return node
}

// Insert adds a slash-separated relative path.
func (included IncludedTree) Insert(entryPath string) {
	included.directory(path.Dir(entryPath)).Add(path.Base(entryPath))
}

// Render prints the tree.
func (included IncludedTree) Render() string {
	return included.tree.Print()
}

// RenderTree builds the tree of a written document's entries.
func RenderTree(written WrittenDocument) string {
	included := NewIncludedTree(written.Title)
	for _, entryPath := range written.Entries {
		included.Insert(entryPath)
	}
	return included.Render()
}
