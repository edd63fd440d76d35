//go:build windows

package store

import (
	"errors"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

// Registry reads from the Windows registry.
type Registry struct{}

// NewRegistry returns the Windows registry backend.
func NewRegistry() (*Registry, error) {
	return &Registry{}, nil
}

// OpenReadOnly opens location with QUERY_VALUE access.
func (r *Registry) OpenReadOnly(location string) (Handle, error) {
	loc, err := ParseLocation(location)
	if err != nil {
		return nil, err
	}

	key, err := registry.OpenKey(registry.LOCAL_MACHINE, loc.Path, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", loc, ErrLocationNotFound)
		}
		return nil, fmt.Errorf("failed to open key %s: %w", loc, err)
	}

	return &registryHandle{key: key}, nil
}

type registryHandle struct {
	key registry.Key
}

func (h *registryHandle) GetValue(name string) (Value, error) {
	_, valType, err := h.key.GetValue(name, nil)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return Value{}, fmt.Errorf("%s: %w", name, ErrValueNotFound)
		}
		return Value{}, fmt.Errorf("failed to query value %s: %w", name, err)
	}

	switch valType {
	case registry.SZ:
		s, _, err := h.key.GetStringValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		return Value{Type: TypeString, Data: s}, nil
	case registry.EXPAND_SZ:
		s, _, err := h.key.GetStringValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		expanded, err := registry.ExpandString(s)
		if err != nil {
			return Value{}, fmt.Errorf("failed to expand value %s: %w", name, err)
		}
		return Value{Type: TypeExpandString, Data: expanded}, nil
	case registry.DWORD, registry.QWORD:
		n, _, err := h.key.GetIntegerValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		vt := TypeDWord
		if valType == registry.QWORD {
			vt = TypeQWord
		}
		return Value{Type: vt, Data: n}, nil
	case registry.MULTI_SZ:
		ss, _, err := h.key.GetStringsValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		return Value{Type: TypeMultiString, Data: ss}, nil
	case registry.BINARY:
		b, _, err := h.key.GetBinaryValue(name)
		if err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		return Value{Type: TypeBinary, Data: b}, nil
	default:
		size, _, err := h.key.GetValue(name, nil)
		if err != nil {
			return Value{}, fmt.Errorf("failed to query value %s: %w", name, err)
		}
		buf := make([]byte, size)
		if _, _, err := h.key.GetValue(name, buf); err != nil {
			return Value{}, fmt.Errorf("failed to read value %s: %w", name, err)
		}
		return Value{Type: ValueType(fmt.Sprintf("REG_%d", valType)), Data: buf}, nil
	}
}

func (h *registryHandle) Close() error {
	return h.key.Close()
}
