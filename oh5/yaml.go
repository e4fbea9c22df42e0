package oh5

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/baltrad/bdb-go/runtime/dberr"
	"github.com/baltrad/bdb-go/runtime/types"
)

// DataSetTag marks a dataset in a metadata dump, e.g. "data: !dataset"
const DataSetTag = "!dataset"

// ReadYAML builds a tree from a YAML metadata dump. Mappings become groups,
// scalars become attributes and values tagged !dataset become datasets.
// Document order is preserved.
func ReadYAML(data []byte) (*Metadata, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse metadata dump: %w", err)
	}

	m := NewMetadata()
	if len(doc.Content) == 0 {
		return m, nil
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, dberr.Value("metadata dump must be a mapping at line %d", root.Line)
	}
	if err := m.loadMapping(m.Root(), root); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metadata) loadMapping(parent Handle, n *yaml.Node) error {
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, val := n.Content[i], n.Content[i+1]
		if val.Kind == yaml.AliasNode && val.Alias != nil {
			val = val.Alias
		}

		var err error
		switch {
		case val.Tag == DataSetTag:
			_, err = m.AddDataSet(parent, key.Value)
		case val.Kind == yaml.MappingNode:
			var g Handle
			if g, err = m.AddGroup(parent, key.Value); err == nil {
				err = m.loadMapping(g, val)
			}
		case val.Kind == yaml.ScalarNode:
			var v types.Variant
			if v, err = scalarValue(val); err == nil {
				_, err = m.AddAttribute(parent, key.Value, v)
			}
		default:
			err = dberr.Value("unsupported value for %q at line %d", key.Value, val.Line)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func scalarValue(n *yaml.Node) (types.Variant, error) {
	switch n.ShortTag() {
	case "!!int":
		var i int64
		if err := n.Decode(&i); err != nil {
			return types.Null(), dberr.Value("invalid integer %q at line %d", n.Value, n.Line)
		}
		return types.NewInt64(i), nil
	case "!!float":
		var f float64
		if err := n.Decode(&f); err != nil {
			return types.Null(), dberr.Value("invalid float %q at line %d", n.Value, n.Line)
		}
		return types.NewDouble(f), nil
	case "!!bool":
		var b bool
		if err := n.Decode(&b); err != nil {
			return types.Null(), dberr.Value("invalid bool %q at line %d", n.Value, n.Line)
		}
		return types.NewBool(b), nil
	case "!!timestamp":
		if d, err := types.ParseDate(n.Value); err == nil {
			return types.NewDateVariant(d), nil
		}
		t, err := types.ParseDateTime(n.Value)
		if err != nil {
			return types.Null(), err
		}
		return types.NewDateTime(t), nil
	case "!!str":
		return types.NewString(n.Value), nil
	default:
		return types.Null(), dberr.Value("unsupported scalar %s %q at line %d", n.ShortTag(), n.Value, n.Line)
	}
}

// EncodeYAML renders the tree in the form ReadYAML accepts
func (m *Metadata) EncodeYAML() ([]byte, error) {
	root := m.encodeChildren(m.Root())
	return yaml.Marshal(root)
}

func (m *Metadata) encodeChildren(h Handle) *yaml.Node {
	out := &yaml.Node{Kind: yaml.MappingNode}
	for _, c := range m.children[h] {
		n := m.nodes[c]
		key := &yaml.Node{Kind: yaml.ScalarNode, Value: n.Name}

		var val *yaml.Node
		switch n.Kind {
		case Group:
			val = m.encodeChildren(c)
		case DataSet:
			val = &yaml.Node{Kind: yaml.ScalarNode, Tag: DataSetTag}
		case Attribute:
			val = scalarNode(n.Value)
		}
		out.Content = append(out.Content, key, val)
	}
	return out
}

func scalarNode(v types.Variant) *yaml.Node {
	n := &yaml.Node{Kind: yaml.ScalarNode, Value: v.ToString()}
	switch v.Kind() {
	case types.KindInt64:
		n.Tag = "!!int"
	case types.KindDouble:
		f, _ := v.AsDouble()
		n.Tag = "!!float"
		n.Value = strconv.FormatFloat(f, 'g', -1, 64)
	case types.KindBool:
		n.Tag = "!!bool"
	case types.KindNone:
		n.Tag = "!!null"
		n.Value = "null"
	default:
		n.Tag = "!!str"
	}
	return n
}
