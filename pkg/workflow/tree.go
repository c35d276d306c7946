package workflow

import (
	"strings"

	"github.com/goccy/go-yaml/ast"
)

type NodeKind int

const (
	NodeNull NodeKind = iota
	NodeScalar
	NodeMapping
	NodeSequence
)

// Node is a schema-less YAML value.
// Anchors, aliases and merge keys are already resolved.
type Node struct {
	Kind  NodeKind
	Line  int
	Value string
	Pairs []*Pair
	Items []*Node
}

type Pair struct {
	Key   string
	Line  int
	Value *Node
}

// Get returns the value of key or nil if n isn't a mapping or the key is absent.
func (n *Node) Get(key string) *Node {
	if n == nil || n.Kind != NodeMapping {
		return nil
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return p.Value
		}
	}
	return nil
}

// Has returns true if n is a mapping having key.
func (n *Node) Has(key string) bool {
	if n == nil || n.Kind != NodeMapping {
		return false
	}
	for _, p := range n.Pairs {
		if p.Key == key {
			return true
		}
	}
	return false
}

// Scalar returns the scalar value of n. It returns an empty string for other kinds.
func (n *Node) Scalar() string {
	if n == nil || n.Kind != NodeScalar {
		return ""
	}
	return n.Value
}

// Strings returns the scalar values of a scalar or a sequence of scalars.
func (n *Node) Strings() []string {
	if n == nil {
		return nil
	}
	switch n.Kind {
	case NodeScalar:
		return []string{n.Value}
	case NodeSequence:
		arr := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			if item.Kind == NodeScalar {
				arr = append(arr, item.Value)
			}
		}
		return arr
	default:
		return nil
	}
}

// Text joins every scalar under n with new lines.
func (n *Node) Text() string {
	if n == nil {
		return ""
	}
	switch n.Kind {
	case NodeScalar:
		return n.Value
	case NodeMapping:
		arr := make([]string, 0, len(n.Pairs))
		for _, p := range n.Pairs {
			arr = append(arr, p.Value.Text())
		}
		return strings.Join(arr, "\n")
	case NodeSequence:
		arr := make([]string, 0, len(n.Items))
		for _, item := range n.Items {
			arr = append(arr, item.Text())
		}
		return strings.Join(arr, "\n")
	default:
		return ""
	}
}

type converter struct {
	anchors map[string]*Node
}

func newConverter() *converter {
	return &converter{anchors: map[string]*Node{}}
}

func lineOf(node ast.Node) int {
	tk := node.GetToken()
	if tk == nil || tk.Position == nil {
		return 0
	}
	return tk.Position.Line
}

func tokenValue(node ast.Node) string {
	if node == nil {
		return ""
	}
	tk := node.GetToken()
	if tk == nil {
		return ""
	}
	return tk.Value
}

// convert converts a goccy/go-yaml AST node to a Node.
// Anchors are registered while walking in document order, which is the
// order in which YAML allows aliases to refer to them.
func (c *converter) convert(node ast.Node) *Node { //nolint:cyclop
	if node == nil {
		return &Node{Kind: NodeNull}
	}
	switch n := node.(type) {
	case *ast.NullNode:
		return &Node{Kind: NodeNull, Line: lineOf(n)}
	case *ast.StringNode:
		return &Node{Kind: NodeScalar, Line: lineOf(n), Value: n.Value}
	case *ast.LiteralNode:
		if n.Value == nil {
			return &Node{Kind: NodeScalar, Line: lineOf(n)}
		}
		return &Node{Kind: NodeScalar, Line: lineOf(n), Value: n.Value.Value}
	case *ast.MappingNode:
		return c.convertMapping(lineOf(n), n.Values)
	case *ast.MappingValueNode:
		return c.convertMapping(lineOf(n), []*ast.MappingValueNode{n})
	case *ast.SequenceNode:
		seq := &Node{Kind: NodeSequence, Line: lineOf(n), Items: make([]*Node, 0, len(n.Values))}
		for _, v := range n.Values {
			seq.Items = append(seq.Items, c.convert(v))
		}
		return seq
	case *ast.AnchorNode:
		v := c.convert(n.Value)
		c.anchors[tokenValue(n.Name)] = v
		return v
	case *ast.AliasNode:
		if v, ok := c.anchors[tokenValue(n.Value)]; ok {
			return v
		}
		return &Node{Kind: NodeNull, Line: lineOf(n)}
	case *ast.TagNode:
		return c.convert(n.Value)
	default:
		// integers, floats, booleans and other scalars
		return &Node{Kind: NodeScalar, Line: lineOf(node), Value: tokenValue(node)}
	}
}

func (c *converter) convertMapping(line int, values []*ast.MappingValueNode) *Node {
	m := &Node{Kind: NodeMapping, Line: line, Pairs: make([]*Pair, 0, len(values))}
	var merged []*Pair
	for _, mv := range values {
		if mv == nil {
			continue
		}
		if _, ok := mv.Key.(*ast.MergeKeyNode); ok || tokenValue(mv.Key) == "<<" {
			merged = append(merged, c.mergePairs(mv.Value)...)
			continue
		}
		m.Pairs = append(m.Pairs, &Pair{
			Key:   tokenValue(mv.Key),
			Line:  lineOf(mv.Key),
			Value: c.convert(mv.Value),
		})
	}
	// Explicit keys take precedence over merged keys.
	for _, p := range merged {
		if !m.Has(p.Key) {
			m.Pairs = append(m.Pairs, p)
		}
	}
	return m
}

func (c *converter) mergePairs(value ast.Node) []*Pair {
	v := c.convert(value)
	switch v.Kind {
	case NodeMapping:
		return v.Pairs
	case NodeSequence:
		var pairs []*Pair
		for _, item := range v.Items {
			if item.Kind == NodeMapping {
				pairs = append(pairs, item.Pairs...)
			}
		}
		return pairs
	default:
		return nil
	}
}
