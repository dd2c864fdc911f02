package render

import (
	"fmt"
	"sort"
	"strings"

	"github.com/copytree/copytree/internal/pipeline"
)

// treeNode is one path segment in the directory tree built from a flat file
// list for both TreeFormatter and the Markdown/JSON "directory structure"
// sections.
type treeNode struct {
	name     string
	isDir    bool
	size     int64
	children map[string]*treeNode
}

func newTreeNode(name string, isDir bool) *treeNode {
	n := &treeNode{name: name, isDir: isDir}
	if isDir {
		n.children = make(map[string]*treeNode)
	}
	return n
}

// buildTree assembles a directory tree from files' POSIX-normalized paths.
func buildTree(files []*pipeline.FileDescriptor) *treeNode {
	root := newTreeNode("", true)
	for _, fd := range files {
		parts := strings.Split(fd.Path, "/")
		cur := root
		for i, part := range parts {
			if part == "" {
				continue
			}
			last := i == len(parts)-1
			child, ok := cur.children[part]
			if !ok {
				child = newTreeNode(part, !last)
				cur.children[part] = child
			}
			if last {
				child.isDir = false
				child.size = fd.Size
			}
			cur = child
		}
	}
	return root
}

// sortedChildren returns n's children with directories sorted before files,
// both groups alphabetical (case-insensitive), per spec.md §4.6.
func sortedChildren(n *treeNode) []*treeNode {
	out := make([]*treeNode, 0, len(n.children))
	for _, c := range n.children {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].isDir != out[j].isDir {
			return out[i].isDir
		}
		return strings.ToLower(out[i].name) < strings.ToLower(out[j].name)
	})
	return out
}

func renderTreeNode(b *strings.Builder, n *treeNode, prefix string) {
	children := sortedChildren(n)
	for i, c := range children {
		last := i == len(children)-1
		connector, nextPrefix := "├── ", prefix+"│   "
		if last {
			connector, nextPrefix = "└── ", prefix+"    "
		}
		if c.isDir {
			fmt.Fprintf(b, "%s%s%s/\n", prefix, connector, c.name)
			renderTreeNode(b, c, nextPrefix)
		} else {
			fmt.Fprintf(b, "%s%s%s (%s)\n", prefix, connector, c.name, humanSize(c.size))
		}
	}
}

// RenderASCIITree renders files as an ASCII directory tree with no header
// or footer, for embedding in the Markdown and JSON formatters' directory
// structure sections.
func RenderASCIITree(files []*pipeline.FileDescriptor) string {
	var b strings.Builder
	renderTreeNode(&b, buildTree(files), "")
	return strings.TrimRight(b.String(), "\n")
}

// humanSize formats n bytes using binary (1024-based) size suffixes.
func humanSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// TreeFormatter renders only the ASCII directory tree: a basepath header, a
// blank line, the tree itself, and a footer summarizing file count and
// total size. No file content is ever included.
type TreeFormatter struct{}

func (TreeFormatter) Format(v *pipeline.Value) (string, error) {
	files := v.NonNilFiles()

	var b strings.Builder
	fmt.Fprintf(&b, "%s\n\n", v.BasePath)
	renderTreeNode(&b, buildTree(files), "")
	fmt.Fprintf(&b, "\n%d files, %s\n", len(files), humanSize(totalSizeOf(files)))
	return b.String(), nil
}
