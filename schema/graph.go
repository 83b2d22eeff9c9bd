package schema

import (
	"bytes"
	"encoding/json"
)

const Context = "https://schema.org"

// Ref is a back-reference to a node that is already in a Graph. The only
// way to obtain a non-zero Ref is Graph.Append.
type Ref struct {
	id string
}

func (r Ref) ID() string {
	return r.id
}

func (r Ref) IsZero() bool {
	return r.id == ""
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID string `json:"@id"`
	}{r.id})
}

type field struct {
	key string
	val any
}

// Node is a JSON object that keeps its keys in insertion order.
type Node struct {
	fields []field
}

// NewNode starts a typed node. An empty id leaves @id out, which is what
// inline values such as PostalAddress or Rating want.
func NewNode(typ, id string) *Node {
	n := &Node{}
	n.Set("@type", typ)
	if id != "" {
		n.Set("@id", id)
	}
	return n
}

// Set assigns key, replacing any earlier value in place.
func (n *Node) Set(key string, val any) {
	for i := range n.fields {
		if n.fields[i].key == key {
			n.fields[i].val = val
			return
		}
	}
	n.fields = append(n.fields, field{key: key, val: val})
}

// SetDefault assigns key only when it is not set yet.
func (n *Node) SetDefault(key string, val any) {
	if _, ok := n.Get(key); !ok {
		n.Set(key, val)
	}
}

// SetRef links key to a node already in the graph. Zero refs are ignored.
func (n *Node) SetRef(key string, r Ref) {
	if r.IsZero() {
		return
	}
	n.Set(key, r)
}

// SetString assigns key when s is non-empty.
func (n *Node) SetString(key, s string) {
	if s != "" {
		n.Set(key, s)
	}
}

func (n *Node) Get(key string) (any, bool) {
	for _, f := range n.fields {
		if f.key == key {
			return f.val, true
		}
	}
	return nil, false
}

func (n *Node) ID() string {
	v, _ := n.Get("@id")
	s, _ := v.(string)
	return s
}

func (n *Node) Type() string {
	v, _ := n.Get("@type")
	s, _ := v.(string)
	return s
}

func (n *Node) Len() int {
	return len(n.fields)
}

func (n *Node) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range n.fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Graph is a flat JSON-LD @graph. Nodes reference each other by Ref only.
type Graph struct {
	nodes []*Node
	ids   map[string]struct{}
}

func NewGraph() *Graph {
	return &Graph{ids: make(map[string]struct{})}
}

// Append adds n and returns a Ref to it. A node whose @id is already in the
// graph is not added again; the Ref then points at the existing node.
func (g *Graph) Append(n *Node) Ref {
	id := n.ID()
	if id != "" {
		if _, dup := g.ids[id]; dup {
			return Ref{id: id}
		}
		g.ids[id] = struct{}{}
	}
	g.nodes = append(g.nodes, n)
	return Ref{id: id}
}

func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Find returns the node with the given @id.
func (g *Graph) Find(id string) *Node {
	for _, n := range g.nodes {
		if n.ID() == id {
			return n
		}
	}
	return nil
}

// OfType returns the nodes whose @type is typ, in graph order.
func (g *Graph) OfType(typ string) []*Node {
	var out []*Node
	for _, n := range g.nodes {
		if n.Type() == typ {
			out = append(out, n)
		}
	}
	return out
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	nodes := g.nodes
	if nodes == nil {
		nodes = []*Node{}
	}
	return json.Marshal(struct {
		Context string  `json:"@context"`
		Graph   []*Node `json:"@graph"`
	}{Context, nodes})
}
