package rig

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	ErrUnresolvedParent = errors.New("unresolved parent")
	ErrMalformedRig     = errors.New("malformed rig")
)

// RootName is the part every walker rig hangs from.
const RootName = "Torso"

// MaterialClass tags a part with the material it is shaded with.
type MaterialClass int

const (
	Skin MaterialClass = iota
	PrimaryAccent
	SecondaryAccent
)

func (m MaterialClass) String() string {
	switch m {
	case Skin:
		return "skin"
	case PrimaryAccent:
		return "primary_accent"
	default:
		return "secondary_accent"
	}
}

// MarshalYAML writes the class by name so scene dumps stay readable.
func (m MaterialClass) MarshalYAML() (interface{}, error) {
	return m.String(), nil
}

func (m *MaterialClass) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	switch s {
	case "skin":
		*m = Skin
	case "primary_accent":
		*m = PrimaryAccent
	case "secondary_accent":
		*m = SecondaryAccent
	default:
		return fmt.Errorf("unknown material class %q", s)
	}
	return nil
}

// Classify maps a part name to its material class. Rules are checked in
// order; anything unmatched falls through to SecondaryAccent.
func Classify(name string) MaterialClass {
	switch {
	case strings.Contains(name, "Head"):
		return Skin
	case strings.Contains(name, "Arm"), strings.Contains(name, "Leg"):
		return PrimaryAccent
	default:
		return SecondaryAccent
	}
}

// Part is a rigid body segment. Parent is a name, resolved through the
// owning Rig; an empty Parent marks the root.
type Part struct {
	Name         string
	BindLocation mgl64.Vec3
	BindScale    mgl64.Vec3
	Parent       string
}

func (p Part) Material() MaterialClass {
	return Classify(p.Name)
}

func (p Part) IsRoot() bool {
	return p.Parent == ""
}

// Rig is an immutable arena of parts in declaration order.
type Rig struct {
	parts   []Part
	index   map[string]int
	parents []int // -1 for the root
	root    int
}

// New validates parts and builds the name index. Every parent must be
// declared in the same slice, exactly one part may be parentless and the
// parent graph must be acyclic.
func New(parts []Part) (*Rig, error) {
	r := &Rig{
		parts:   make([]Part, len(parts)),
		index:   make(map[string]int, len(parts)),
		parents: make([]int, len(parts)),
		root:    -1,
	}
	copy(r.parts, parts)

	for i, p := range r.parts {
		if p.Name == "" {
			return nil, fmt.Errorf("%w: part %d has no name", ErrMalformedRig, i)
		}
		if _, dup := r.index[p.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate part %q", ErrMalformedRig, p.Name)
		}
		r.index[p.Name] = i
	}

	for i, p := range r.parts {
		if p.IsRoot() {
			if r.root >= 0 {
				return nil, fmt.Errorf("%w: second root %q (root is %q)", ErrMalformedRig, p.Name, r.parts[r.root].Name)
			}
			r.root = i
			r.parents[i] = -1
			continue
		}
		pi, ok := r.index[p.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: %q -> %q", ErrUnresolvedParent, p.Name, p.Parent)
		}
		r.parents[i] = pi
	}
	if r.root < 0 {
		return nil, fmt.Errorf("%w: no root part", ErrMalformedRig)
	}

	// Single root + every node reaching it means no cycles.
	for i := range r.parts {
		steps := 0
		for j := i; r.parents[j] >= 0; j = r.parents[j] {
			steps++
			if steps > len(r.parts) {
				return nil, fmt.Errorf("%w: parent cycle through %q", ErrMalformedRig, r.parts[i].Name)
			}
		}
	}

	return r, nil
}

func (r *Rig) Len() int {
	return len(r.parts)
}

// Parts returns a copy of the parts in declaration order.
func (r *Rig) Parts() []Part {
	out := make([]Part, len(r.parts))
	copy(out, r.parts)
	return out
}

func (r *Rig) Part(i int) Part {
	return r.parts[i]
}

func (r *Rig) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// ParentIndex returns the arena index of part i's parent, or -1 for the root.
func (r *Rig) ParentIndex(i int) int {
	return r.parents[i]
}

func (r *Rig) Root() Part {
	return r.parts[r.root]
}

func (r *Rig) RootIndex() int {
	return r.root
}

// Depth is the number of parent links between part i and the root.
func (r *Rig) Depth(i int) int {
	d := 0
	for j := r.parents[i]; j >= 0; j = r.parents[j] {
		d++
	}
	return d
}
