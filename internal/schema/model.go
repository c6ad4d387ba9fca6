// Package schema indexes an Arches resource-model export: which node (field)
// belongs to which card, identified by its node group, and which datatype it
// carries. The pipeline only needs card membership and the geometry datatype
// tag; everything else in the export is ignored.
package schema

// GeometryDatatype marks nodes that hold spatial feature data.
const GeometryDatatype = "geojson-feature-collection"

// Field is one node of the resource model.
type Field struct {
	// Name is the node name, which is also the CSV column header. Nodes
	// without a name are keyed by NodeID.
	Name string
	// NodeID is the node's UUID in the resource model.
	NodeID string
	// GroupID is the nodegroup (card) the node belongs to.
	GroupID string
	// Datatype is the Arches datatype tag, e.g. "string" or GeometryDatatype.
	Datatype string
}

// IsGeometry reports whether the field holds geometry.
func (f Field) IsGeometry() bool { return f.Datatype == GeometryDatatype }

// document is the decoded export. Arches writes {"graph": [...]}; a bare
// graph ({"nodes": [...]}) is accepted as a single-graph document.
type document struct {
	Graph []graph `json:"graph"`
	Nodes []node  `json:"nodes"`
}

type graph struct {
	Nodes []node `json:"nodes"`
}

type node struct {
	NodeID      string  `json:"nodeid"`
	Name        string  `json:"name"`
	NodegroupID *string `json:"nodegroup_id"`
	Datatype    string  `json:"datatype"`
}

// key returns the field key for the node: its name, else its node id.
func (n node) key() string {
	if n.Name != "" {
		return n.Name
	}
	return n.NodeID
}
