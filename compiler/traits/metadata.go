package traits

import (
	"crypto/sha256"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/dynlink/compiler"
)

// ---------------------------------------------------------------------------
// TraitNode: compile-time trait metadata handed to the emitter
// ---------------------------------------------------------------------------

// MethodInfo describes one trait method.
type MethodInfo struct {
	Name          string   `cbor:"1,keyasint"`
	Params        []string `cbor:"2,keyasint,omitempty"` // erased parameter types
	ParamNames    []string `cbor:"3,keyasint,omitempty"`
	Return        string   `cbor:"4,keyasint"`
	Abstract      bool     `cbor:"5,keyasint,omitempty"`
	ForceOverride bool     `cbor:"6,keyasint,omitempty"`
}

// Signature returns name plus erased parameter types.
func (m MethodInfo) Signature() string {
	return m.Name + "(" + strings.Join(m.Params, ",") + ")"
}

// FieldInfo describes one trait field.
type FieldInfo struct {
	Name    string `cbor:"1,keyasint"`
	Type    string `cbor:"2,keyasint"`
	HasInit bool   `cbor:"3,keyasint,omitempty"`
}

// TraitNode is what pass 1 learns about a trait and pass 2 needs to apply it.
type TraitNode struct {
	Name        string       `cbor:"1,keyasint"`
	Helper      string       `cbor:"2,keyasint"`
	FieldHelper string       `cbor:"3,keyasint,omitempty"` // empty when the trait has no fields
	SuperTraits []string     `cbor:"4,keyasint,omitempty"`
	Methods     []MethodInfo `cbor:"5,keyasint,omitempty"`
	Fields      []FieldInfo  `cbor:"6,keyasint,omitempty"`
	Init        bool         `cbor:"7,keyasint,omitempty"` // helper declares $init$
}

// HasFields reports whether the trait needs a FieldHelper.
func (t *TraitNode) HasFields() bool { return len(t.Fields) > 0 }

// Method returns the method with the given signature, or nil.
func (t *TraitNode) Method(signature string) *MethodInfo {
	for i := range t.Methods {
		if t.Methods[i].Signature() == signature {
			return &t.Methods[i]
		}
	}
	return nil
}

func methodInfo(m *compiler.MethodNode) MethodInfo {
	info := MethodInfo{
		Name:          m.Name,
		Return:        m.ReturnType,
		Abstract:      m.IsAbstract(),
		ForceOverride: m.HasAnnotation(compiler.AnnForceOverride),
	}
	if info.Return == "" {
		info.Return = "Object"
	}
	for _, p := range m.Params {
		info.Params = append(info.Params, compiler.ErasedType(p.Type))
		info.ParamNames = append(info.ParamNames, p.Name)
	}
	return info
}

// ---------------------------------------------------------------------------
// Encoding
// ---------------------------------------------------------------------------

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("traits: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// EncodeMetadata serializes a TraitNode to canonical CBOR.
func EncodeMetadata(t *TraitNode) ([]byte, error) {
	return cborEncMode.Marshal(t)
}

// DecodeMetadata deserializes a TraitNode from CBOR bytes.
func DecodeMetadata(data []byte) (*TraitNode, error) {
	var t TraitNode
	if err := cbor.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("traits: decode metadata: %w", err)
	}
	return &t, nil
}

// Fingerprint returns the SHA-256 of the canonical encoding. Two traits with
// the same shape have the same fingerprint.
func Fingerprint(t *TraitNode) ([32]byte, error) {
	data, err := EncodeMetadata(t)
	if err != nil {
		return [32]byte{}, err
	}
	return sha256.Sum256(data), nil
}

// ---------------------------------------------------------------------------
// Table: trait metadata by name
// ---------------------------------------------------------------------------

// Table holds the metadata of every trait seen so far, including traits
// compiled in earlier units. It is safe for concurrent use.
type Table struct {
	mu     sync.RWMutex
	traits map[string]*TraitNode
}

// NewTable creates an empty trait table.
func NewTable() *Table {
	return &Table{traits: make(map[string]*TraitNode)}
}

// Register adds a trait. Returns the previous trait with this name, or nil.
func (tt *Table) Register(t *TraitNode) *TraitNode {
	tt.mu.Lock()
	defer tt.mu.Unlock()

	old := tt.traits[t.Name]
	tt.traits[t.Name] = t
	return old
}

// Lookup finds a trait by name.
func (tt *Table) Lookup(name string) *TraitNode {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return tt.traits[name]
}

// Names returns all registered trait names, sorted.
func (tt *Table) Names() []string {
	tt.mu.RLock()
	defer tt.mu.RUnlock()

	names := make([]string, 0, len(tt.traits))
	for n := range tt.traits {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered traits.
func (tt *Table) Len() int {
	tt.mu.RLock()
	defer tt.mu.RUnlock()
	return len(tt.traits)
}
