package schema

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Index maps field names to their card and datatype. It is built once by
// Build and is read-only afterwards, so it is safe to share between
// goroutines.
type Index struct {
	fields  []Field          // schema order
	byName  map[string]int   // field key -> position in fields
	byNode  map[string]int   // node id -> position in fields
	byGroup map[string][]int // group id -> positions, schema order
}

// Build decodes a resource-model export from r. Malformed JSON or an
// unexpected shape yields a *LoadError. A document without graphs, nodes or
// groups is not an error; it produces an index without geometry fields.
//
// When two nodes share a name, the first one wins.
func Build(r io.Reader) (*Index, error) {
	br := bufio.NewReader(r)
	first, err := peekNonSpace(br)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &LoadError{Source: "reader", Err: errors.New("empty document")}
		}
		return nil, &LoadError{Source: "reader", Err: err}
	}

	var graphs []graph
	dec := json.NewDecoder(br)
	switch first {
	case '[':
		if err := dec.Decode(&graphs); err != nil {
			return nil, &LoadError{Source: "reader", Err: fmt.Errorf("decode graphs: %w", err)}
		}
	case '{':
		var doc document
		if err := dec.Decode(&doc); err != nil {
			return nil, &LoadError{Source: "reader", Err: fmt.Errorf("decode document: %w", err)}
		}
		graphs = doc.Graph
		if len(doc.Nodes) > 0 {
			graphs = append(graphs, graph{Nodes: doc.Nodes})
		}
	default:
		return nil, &LoadError{Source: "reader", Err: fmt.Errorf("unexpected leading character %q", first)}
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return nil, &LoadError{Source: "reader", Err: errors.New("trailing data after document")}
	}

	return newIndex(graphs), nil
}

func peekNonSpace(br *bufio.Reader) (byte, error) {
	for {
		b, err := br.ReadByte()
		if err != nil {
			return 0, err
		}
		// Skip a UTF-8 BOM as well as JSON whitespace.
		if bytes.IndexByte([]byte(" \t\r\n\xef\xbb\xbf"), b) >= 0 {
			continue
		}
		return b, br.UnreadByte()
	}
}

func newIndex(graphs []graph) *Index {
	idx := &Index{
		byName:  make(map[string]int),
		byNode:  make(map[string]int),
		byGroup: make(map[string][]int),
	}
	for _, g := range graphs {
		for _, n := range g.Nodes {
			key := n.key()
			if key == "" {
				continue
			}
			if _, dup := idx.byName[key]; dup {
				continue
			}
			f := Field{Name: key, NodeID: n.NodeID, Datatype: n.Datatype}
			if n.NodegroupID != nil {
				f.GroupID = *n.NodegroupID
			}
			pos := len(idx.fields)
			idx.fields = append(idx.fields, f)
			idx.byName[key] = pos
			if n.NodeID != "" {
				if _, dup := idx.byNode[n.NodeID]; !dup {
					idx.byNode[n.NodeID] = pos
				}
			}
			if f.GroupID != "" {
				idx.byGroup[f.GroupID] = append(idx.byGroup[f.GroupID], pos)
			}
		}
	}
	return idx
}

// Len returns the number of indexed fields.
func (idx *Index) Len() int { return len(idx.fields) }

// Field looks a field up by name, falling back to node id.
func (idx *Index) Field(name string) (Field, bool) {
	if pos, ok := idx.byName[name]; ok {
		return idx.fields[pos], true
	}
	if pos, ok := idx.byNode[name]; ok {
		return idx.fields[pos], true
	}
	return Field{}, false
}

// FieldsInGroupOf returns every field name sharing the card of name,
// including name itself, in schema order. Unknown names yield nil. A field
// without a node group is a card of its own.
//
// The group is always resolved through the field's group id; fields carry no
// link to their co-members.
func (idx *Index) FieldsInGroupOf(name string) []string {
	f, ok := idx.Field(name)
	if !ok {
		return nil
	}
	if f.GroupID == "" {
		return []string{f.Name}
	}
	positions := idx.byGroup[f.GroupID]
	out := make([]string, 0, len(positions))
	for _, pos := range positions {
		out = append(out, idx.fields[pos].Name)
	}
	return out
}

// GeometryFieldNames returns all geometry-bearing field names across every
// card, in schema order.
func (idx *Index) GeometryFieldNames() []string {
	var out []string
	for _, f := range idx.fields {
		if f.IsGeometry() {
			out = append(out, f.Name)
		}
	}
	return out
}

// GeometryCards maps each card holding geometry fields to those field names.
// Cards without geometry are omitted. An ungrouped geometry field is keyed
// by its own name.
func (idx *Index) GeometryCards() map[string][]string {
	out := make(map[string][]string)
	for _, f := range idx.fields {
		if f.IsGeometry() {
			card := f.GroupID
			if card == "" {
				card = f.Name
			}
			out[card] = append(out[card], f.Name)
		}
	}
	return out
}
