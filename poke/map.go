package poke

import (
	"github.com/wippyai/go-facet/errors"
	"github.com/wippyai/go-facet/ptr"
	"github.com/wippyai/go-facet/shape"
)

// Map builds an associative container through its vtable.
type Map struct {
	data  ptr.Uninit
	shape *shape.Shape
	def   *shape.MapDef
	init  bool
	built bool
}

func (m *Map) Shape() *shape.Shape      { return m.shape }
func (m *Map) Def() *shape.MapDef       { return m.def }
func (m *Map) KeyShape() *shape.Shape   { return m.def.K() }
func (m *Map) ValueShape() *shape.Shape { return m.def.V() }
func (m *Map) IsInitialized() bool      { return m.init }

// InitWithCapacity turns the memory into an empty map.
func (m *Map) InitWithCapacity(n int) error {
	if m.init {
		return errors.InvalidState(errors.PhasePoke, "%s already initialized", m.shape)
	}
	m.def.VTable.InitInPlaceWithCapacity(m.data, n)
	m.init = true
	return nil
}

func (m *Map) Len() int {
	if !m.init {
		return 0
	}
	return m.def.VTable.Len(m.data.AssumeInit().AsConst())
}

// InsertShape moves key and value into the map, converting either if needed.
// An existing entry for the key is replaced. On error both sources are untouched.
func (m *Map) InsertShape(key ptr.Mut, keyShape *shape.Shape, value ptr.Mut, valueShape *shape.Shape) error {
	if !m.init {
		return errors.NotInitialized(errors.PhasePoke, nil, m.shape.String())
	}
	k, err := stage(nil, m.def.K(), key, keyShape)
	if err != nil {
		return err
	}
	v, err := stage(nil, m.def.V(), value, valueShape)
	if err != nil {
		k.abort()
		return err
	}
	m.def.VTable.Insert(m.data.AssumeInit(), k.val, v.val)
	k.commit()
	v.commit()
	return nil
}

// Insert moves k and v into m.
func Insert[K, V any](m *Map, k K, v V) error {
	return m.InsertShape(ptr.MutFrom(&k), shape.Of[K](), ptr.MutFrom(&v), shape.Of[V]())
}

func (m *Map) BuildInPlace() (ptr.Mut, error) {
	if !m.init {
		return ptr.Mut{}, errors.NotInitialized(errors.PhaseBuild, nil, m.shape.String())
	}
	m.built = true
	return m.data.AssumeInit(), nil
}

// Release drops the map and its entries.
func (m *Map) Release() {
	if m.init && !m.built {
		shape.DropInPlace(m.shape, m.data.AssumeInit())
		m.init = false
	}
}

// staged is a value ready to be moved into a container: either the caller's source
// itself, or a converted copy in scratch memory.
type staged struct {
	val  ptr.Mut
	src  ptr.Mut
	have *shape.Shape
	want *shape.Shape
	g    *Guard
}

func stage(path []string, want *shape.Shape, src ptr.Mut, have *shape.Shape) (staged, error) {
	if want.Is(have) {
		return staged{val: src}, nil
	}
	tmp, g, err := Alloc(want)
	if err != nil {
		return staged{}, err
	}
	m, err := convert(path, tmp.data, want, src.AsConst(), have)
	if err != nil {
		g.Free()
		return staged{}, err
	}
	return staged{val: m, src: src, have: have, want: want, g: g}, nil
}

// commit runs after val has been moved into its container. A converted value's source
// is consumed.
func (s staged) commit() {
	if s.g != nil {
		shape.DropInPlace(s.have, s.src)
		s.g.Free()
	}
}

// abort discards a converted value and leaves the source to the caller.
func (s staged) abort() {
	if s.g != nil {
		shape.DropInPlace(s.want, s.val)
		s.g.Free()
	}
}
