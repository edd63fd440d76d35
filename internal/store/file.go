package store

import (
	"fmt"
	"math"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// snapshot is the on-disk layout of a file store:
//
//	keys:
//	  'HKLM\SOFTWARE\Microsoft\Windows\CurrentVersion\Policies\System':
//	    EnableLUA: 1
type snapshot struct {
	Keys map[string]map[string]yaml.Node `yaml:"keys"`
}

// File serves locations from a YAML snapshot of the store. The snapshot is
// re-read on every open so edits are visible without restarting.
type File struct {
	path string
}

// NewFile returns a file store backed by the snapshot at path.
func NewFile(path string) *File {
	return &File{path: path}
}

// OpenReadOnly loads the snapshot and returns the values under location.
func (f *File) OpenReadOnly(location string) (Handle, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read store snapshot: %w", err)
	}

	var snap snapshot
	if err := yaml.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("failed to parse store snapshot %s: %w", f.path, err)
	}

	for rawLoc, values := range snap.Keys {
		parsed, err := ParseLocation(rawLoc)
		if err != nil {
			continue
		}
		if parsed.Key() != loc.Key() {
			continue
		}

		h := &fileHandle{values: make(map[string]yaml.Node, len(values))}
		for name, node := range values {
			h.values[strings.ToLower(name)] = node
		}
		return h, nil
	}

	return nil, fmt.Errorf("%s: %w", loc, ErrLocationNotFound)
}

type fileHandle struct {
	values map[string]yaml.Node
}

func (h *fileHandle) GetValue(name string) (Value, error) {
	node, ok := h.values[strings.ToLower(name)]
	if !ok {
		return Value{}, fmt.Errorf("%s: %w", name, ErrValueNotFound)
	}
	return decodeNode(name, &node)
}

func (h *fileHandle) Close() error {
	h.values = nil
	return nil
}

func decodeNode(name string, node *yaml.Node) (Value, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return decodeScalar(name, node)
	case yaml.SequenceNode:
		var items []string
		if err := node.Decode(&items); err != nil {
			return Value{}, fmt.Errorf("malformed multi-string value %s at line %d: %w", name, node.Line, err)
		}
		return Value{Type: TypeMultiString, Data: items}, nil
	default:
		return Value{}, fmt.Errorf("malformed value %s at line %d: unsupported node kind", name, node.Line)
	}
}

func decodeScalar(name string, node *yaml.Node) (Value, error) {
	switch node.ShortTag() {
	case "!!int":
		var n int64
		if err := node.Decode(&n); err != nil {
			return Value{}, fmt.Errorf("malformed integer value %s at line %d: %w", name, node.Line, err)
		}
		if n < 0 {
			// Registry integers are unsigned; negative snapshot values keep their sign.
			return Value{Type: TypeQWord, Data: n}, nil
		}
		if n > math.MaxUint32 {
			return Value{Type: TypeQWord, Data: uint64(n)}, nil
		}
		return Value{Type: TypeDWord, Data: uint64(n)}, nil
	case "!!bool":
		var b bool
		if err := node.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("malformed boolean value %s at line %d: %w", name, node.Line, err)
		}
		return Value{Type: TypeDWord, Data: b}, nil
	case "!!binary":
		var b []byte
		if err := node.Decode(&b); err != nil {
			return Value{}, fmt.Errorf("malformed binary value %s at line %d: %w", name, node.Line, err)
		}
		return Value{Type: TypeBinary, Data: b}, nil
	case "!!null":
		return Value{Type: TypeString, Data: ""}, nil
	default:
		return Value{Type: TypeString, Data: node.Value}, nil
	}
}
