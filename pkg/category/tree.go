package category

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
)

// TreeLoader defines the interface for loading categories from storage.
// This allows a Tree to be loaded from any store implementation
// without creating a circular dependency.
type TreeLoader interface {
	// Get retrieves a category by name.
	Get(ctx context.Context, name string) (*Category, error)

	// Children returns the ordered children of the given parent.
	// Pass nil to get root-level categories.
	Children(ctx context.Context, parentName *string) ([]*Category, error)
}

// TreeNode is one category in a rendered hierarchy.
type TreeNode struct {
	Name        string      `json:"name"`
	Description *string     `json:"description"`
	Image       *string     `json:"image"`
	Children    []*TreeNode `json:"children"`
}

// Tree is an in-memory view of the hierarchy below a single category.
type Tree struct {
	Root *TreeNode

	// index provides O(1) lookup by category name
	index map[string]*TreeNode
}

var (
	treeNameStyle = lipgloss.NewStyle().Bold(true)
	treeDimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	treeEnumStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63")).MarginRight(1)
)

// LoadTree loads the category with the given name and all of its descendants
// in child-list order.
func LoadTree(ctx context.Context, loader TreeLoader, name string) (*Tree, error) {
	root, err := loader.Get(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("getting tree root %s: %w", name, err)
	}

	t := &Tree{
		Root:  newTreeNode(root),
		index: make(map[string]*TreeNode),
	}
	t.index[root.Name] = t.Root

	if err := t.loadDescendants(ctx, loader, t.Root); err != nil {
		return nil, fmt.Errorf("loading descendants: %w", err)
	}

	return t, nil
}

// NewTree wraps an already loaded node hierarchy, e.g. one decoded from the
// JSON tree endpoint.
func NewTree(root *TreeNode) *Tree {
	t := &Tree{
		Root:  root,
		index: make(map[string]*TreeNode),
	}
	_ = t.Walk(func(node *TreeNode, _ int) (bool, error) {
		t.index[node.Name] = node
		return true, nil
	})
	return t
}

// Get returns the TreeNode with the given name, or nil if not in the tree.
func (t *Tree) Get(name string) *TreeNode {
	return t.index[name]
}

// Size returns the number of categories in the tree.
func (t *Tree) Size() int {
	return len(t.index)
}

// Walk traverses the tree depth-first from the root, calling f with each node
// and its depth. If f returns false, traversal stops.
func (t *Tree) Walk(f func(node *TreeNode, depth int) (bool, error)) error {
	if t.Root == nil {
		return nil
	}

	_, err := walkNode(t.Root, 0, f)
	return err
}

func walkNode(node *TreeNode, depth int, f func(*TreeNode, int) (bool, error)) (bool, error) {
	ok, err := f(node, depth)
	if !ok || err != nil {
		return false, err
	}

	for _, child := range node.Children {
		ok, err := walkNode(child, depth+1, f)
		if !ok || err != nil {
			return false, err
		}
	}

	return true, nil
}

// Render draws the tree for terminal display.
func (t *Tree) Render() string {
	if t.Root == nil {
		return ""
	}
	return t.Root.lipglossTree().String()
}

// Outline renders the tree as plain indented lines, four spaces per level.
func (t *Tree) Outline() string {
	var b strings.Builder
	_ = t.Walk(func(node *TreeNode, depth int) (bool, error) {
		b.WriteString(strings.Repeat(" ", depth*4))
		b.WriteString(node.describe())
		b.WriteByte('\n')
		return true, nil
	})
	return b.String()
}

func (t *Tree) loadDescendants(ctx context.Context, loader TreeLoader, node *TreeNode) error {
	name := node.Name
	children, err := loader.Children(ctx, &name)
	if err != nil {
		return fmt.Errorf("getting children of %s: %w", node.Name, err)
	}

	for _, child := range children {
		if child == nil {
			return errors.New("loader returned nil child")
		}
		// A category already in the tree would mean a cycle; never expand it twice.
		if t.Get(child.Name) != nil {
			continue
		}

		childNode := newTreeNode(child)
		node.Children = append(node.Children, childNode)
		t.index[child.Name] = childNode

		if err := t.loadDescendants(ctx, loader, childNode); err != nil {
			return err
		}
	}

	return nil
}

func newTreeNode(c *Category) *TreeNode {
	return &TreeNode{
		Name:        c.Name,
		Description: cloneString(c.Description),
		Image:       cloneString(c.Image),
		Children:    []*TreeNode{},
	}
}

func (n *TreeNode) describe() string {
	return fmt.Sprintf("Name: %s, Description: %s, Image: %s",
		n.Name, orNone(n.Description), orNone(n.Image))
}

func (n *TreeNode) lipglossTree() *tree.Tree {
	label := treeNameStyle.Render(n.Name)
	if n.Description != nil || n.Image != nil {
		label += " " + treeDimStyle.Render(fmt.Sprintf("(%s, %s)", orNone(n.Description), orNone(n.Image)))
	}

	t := tree.Root(label).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(treeEnumStyle)
	for _, child := range n.Children {
		t.Child(child.lipglossTree())
	}
	return t
}

func orNone(s *string) string {
	if s == nil {
		return "None"
	}
	return *s
}
