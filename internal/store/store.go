// Package store abstracts the host configuration store that registry checks
// read from. On Windows that is the registry; elsewhere a YAML snapshot of it
// stands in, and tests use an in-memory store.
package store

import (
	"encoding/hex"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"strings"
)

var (
	// ErrLocationNotFound is returned by OpenReadOnly when the location does not exist.
	ErrLocationNotFound = errors.New("location not found")
	// ErrValueNotFound is returned by GetValue when the named value is absent.
	ErrValueNotFound = errors.New("value not found")
	// ErrNotSupported is returned when a backend is unavailable on this platform.
	ErrNotSupported = errors.New("store backend is not supported on this platform")
)

// Store opens locations in a host configuration store.
type Store interface {
	OpenReadOnly(location string) (Handle, error)
}

// Handle is an open, read-only location. Callers must Close it.
type Handle interface {
	GetValue(name string) (Value, error)
	Close() error
}

// ValueType names the registry type a value was stored as.
type ValueType string

const (
	TypeString       ValueType = "REG_SZ"
	TypeExpandString ValueType = "REG_EXPAND_SZ"
	TypeDWord        ValueType = "REG_DWORD"
	TypeQWord        ValueType = "REG_QWORD"
	TypeMultiString  ValueType = "REG_MULTI_SZ"
	TypeBinary       ValueType = "REG_BINARY"
)

// Value is a raw value read from a store.
type Value struct {
	Type ValueType
	Data any
}

// String renders the value the way the host would print it: numbers as
// decimal text, multi-strings joined with ";", binary data as hex.
func (v Value) String() string {
	switch d := v.Data.(type) {
	case nil:
		return ""
	case string:
		return d
	case uint64:
		return strconv.FormatUint(d, 10)
	case uint32:
		return strconv.FormatUint(uint64(d), 10)
	case int:
		return strconv.Itoa(d)
	case int64:
		return strconv.FormatInt(d, 10)
	case bool:
		if d {
			return "1"
		}
		return "0"
	case []string:
		return strings.Join(d, ";")
	case []byte:
		return hex.EncodeToString(d)
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Hive identifies the root of a location. Checks only read host-wide
// settings, so every location lives under HKLM.
type Hive string

const HiveLocalMachine Hive = "HKLM"

// Location is a parsed location identifier.
type Location struct {
	Hive Hive
	Path string
}

// String returns the canonical HIVE\path form.
func (l Location) String() string {
	if l.Path == "" {
		return string(l.Hive)
	}
	return string(l.Hive) + `\` + l.Path
}

// Key returns a case-folded form suitable for lookups.
func (l Location) Key() string {
	return strings.ToLower(l.String())
}

// ParseLocation resolves a location under HKLM. A leading HKLM or
// HKEY_LOCAL_MACHINE prefix is stripped. Any other hive name is not special
// and stays part of the path, so HKCU\Foo names HKLM\HKCU\Foo.
func ParseLocation(location string) (Location, error) {
	normalized := strings.Trim(strings.ReplaceAll(strings.TrimSpace(location), "/", `\`), `\`)
	if normalized == "" {
		return Location{}, fmt.Errorf("empty location")
	}

	parts := strings.SplitN(normalized, `\`, 2)
	if isLocalMachine(parts[0]) {
		path := ""
		if len(parts) == 2 {
			path = strings.Trim(parts[1], `\`)
		}
		return Location{Hive: HiveLocalMachine, Path: path}, nil
	}

	return Location{Hive: HiveLocalMachine, Path: normalized}, nil
}

func isLocalMachine(name string) bool {
	switch strings.ToUpper(strings.TrimSuffix(strings.TrimSpace(name), ":")) {
	case "HKLM", "HKEY_LOCAL_MACHINE":
		return true
	default:
		return false
	}
}

// Kind selects a store backend.
type Kind string

const (
	KindAuto     Kind = "auto"
	KindRegistry Kind = "registry"
	KindFile     Kind = "file"
)

// Open returns the backend for kind. filePath is only used by the file backend.
func Open(kind Kind, filePath string) (Store, error) {
	if kind == KindAuto || kind == "" {
		if runtime.GOOS == "windows" {
			kind = KindRegistry
		} else {
			kind = KindFile
		}
	}

	switch kind {
	case KindRegistry:
		r, err := NewRegistry()
		if err != nil {
			return nil, err
		}
		return r, nil
	case KindFile:
		if filePath == "" {
			return nil, fmt.Errorf("file store requires a snapshot path")
		}
		return NewFile(filePath), nil
	default:
		return nil, fmt.Errorf("unknown store kind: %s", kind)
	}
}
