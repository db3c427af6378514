// gamemap/map.go
package gamemap

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"slices"

	"github.com/wfunc/mrxserver/models"
	"gopkg.in/yaml.v3"
)

// NodeType 地图节点类型
type NodeType string

const (
	NodeNormal NodeType = "normal"
	NodeStart  NodeType = "start"
	NodeEscape NodeType = "escape"
)

// Connection is one edge leaving a node.
type Connection struct {
	To         string                 `yaml:"to" json:"to"`
	Transports []models.TransportType `yaml:"transport" json:"transportTypes"`
}

// Carries reports whether the edge can be travelled with t.
func (c Connection) Carries(t models.TransportType) bool {
	return slices.Contains(c.Transports, t)
}

// Node 地图节点
type Node struct {
	ID             string                 `yaml:"id" json:"id"`
	Label          string                 `yaml:"label" json:"label"`
	Type           NodeType               `yaml:"type" json:"type"`
	TransportTypes []models.TransportType `yaml:"-" json:"transportTypes"`
	Connections    []Connection           `yaml:"connections" json:"connections"`
}

// Map is the immutable board shared by every room.
type Map struct {
	nodes []*Node
	index map[string]*Node
}

type mapFile struct {
	Nodes []*Node `yaml:"nodes" json:"nodes"`
}

//go:embed default_map.yaml
var defaultMapYAML []byte

// Default returns the embedded board.
func Default() *Map {
	m, err := Parse(defaultMapYAML)
	if err != nil {
		panic("embedded map is invalid: " + err.Error())
	}
	return m
}

// Load reads and validates a YAML map file.
func Load(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading map %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parsing map %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML map and validates it.
func Parse(data []byte) (*Map, error) {
	var f mapFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, err
	}
	return New(f.Nodes)
}

// New builds a map from nodes, filling in each node's transport types and
// checking that every edge exists in both directions with the same transports.
func New(nodes []*Node) (*Map, error) {
	if len(nodes) == 0 {
		return nil, fmt.Errorf("map has no nodes")
	}
	m := &Map{
		nodes: nodes,
		index: make(map[string]*Node, len(nodes)),
	}
	for _, n := range nodes {
		if n.ID == "" {
			return nil, fmt.Errorf("node without id")
		}
		if _, dup := m.index[n.ID]; dup {
			return nil, fmt.Errorf("duplicate node %q", n.ID)
		}
		switch n.Type {
		case NodeNormal, NodeStart, NodeEscape:
		case "":
			n.Type = NodeNormal
		default:
			return nil, fmt.Errorf("node %q has unknown type %q", n.ID, n.Type)
		}
		m.index[n.ID] = n
	}

	for _, n := range nodes {
		n.TransportTypes = n.TransportTypes[:0]
		for _, c := range n.Connections {
			if _, ok := m.index[c.To]; !ok {
				return nil, fmt.Errorf("node %q connects to unknown node %q", n.ID, c.To)
			}
			if c.To == n.ID {
				return nil, fmt.Errorf("node %q connects to itself", n.ID)
			}
			if len(c.Transports) == 0 {
				return nil, fmt.Errorf("edge %s-%s has no transport", n.ID, c.To)
			}
			for _, t := range c.Transports {
				if !t.Valid() {
					return nil, fmt.Errorf("edge %s-%s has unknown transport %q", n.ID, c.To, t)
				}
				if !slices.Contains(n.TransportTypes, t) {
					n.TransportTypes = append(n.TransportTypes, t)
				}
			}
		}
		slices.SortFunc(n.TransportTypes, func(a, b models.TransportType) int {
			return slices.Index(models.TransportTypes, a) - slices.Index(models.TransportTypes, b)
		})
	}

	for _, n := range nodes {
		for _, c := range n.Connections {
			back, ok := m.connection(c.To, n.ID)
			if !ok {
				return nil, fmt.Errorf("edge %s-%s has no return edge", n.ID, c.To)
			}
			if !sameTransports(c.Transports, back.Transports) {
				return nil, fmt.Errorf("edge %s-%s transports differ between directions", n.ID, c.To)
			}
		}
	}
	return m, nil
}

func sameTransports(a, b []models.TransportType) bool {
	if len(a) != len(b) {
		return false
	}
	for _, t := range a {
		if !slices.Contains(b, t) {
			return false
		}
	}
	return true
}

func (m *Map) connection(from, to string) (Connection, bool) {
	n, ok := m.index[from]
	if !ok {
		return Connection{}, false
	}
	for _, c := range n.Connections {
		if c.To == to {
			return c, true
		}
	}
	return Connection{}, false
}

// Node looks up a node by id.
func (m *Map) Node(id string) (*Node, bool) {
	n, ok := m.index[id]
	return n, ok
}

// Nodes returns the nodes in file order.
func (m *Map) Nodes() []*Node {
	return m.nodes
}

// HasEdge reports whether from and to are connected by transport t.
func (m *Map) HasEdge(from, to string, t models.TransportType) bool {
	c, ok := m.connection(from, to)
	return ok && c.Carries(t)
}

// Connections returns the edges leaving id.
func (m *Map) Connections(id string) []Connection {
	n, ok := m.index[id]
	if !ok {
		return nil
	}
	return n.Connections
}

// StartNodes returns the ids of start nodes in file order.
func (m *Map) StartNodes() []string {
	var ids []string
	for _, n := range m.nodes {
		if n.Type == NodeStart {
			ids = append(ids, n.ID)
		}
	}
	return ids
}

// MarshalJSON encodes the map in the same shape as the YAML file, with each
// node's transport types filled in.
func (m *Map) MarshalJSON() ([]byte, error) {
	return json.Marshal(mapFile{Nodes: m.nodes})
}
