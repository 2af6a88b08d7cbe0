// Package facet is a runtime reflection layer built around shapes.
//
// For a Go type T, shape.Of[T]() yields one process-wide *shape.Shape recording the
// type's layout, identity, semantic definition and an erased table of operations on
// its values. Everything else in this module works against shapes alone: serializers,
// the argument parser and the component model bridge never see concrete types.
//
// # Architecture Overview
//
//	facet/               Convenience entry points over the packages below
//	├── ptr/             Opaque pointers that mark intent across the erasure boundary
//	├── shape/           Shape, Def and ValueVTable, derived from reflect or built by hand
//	├── peek/            Read-only views of values through their shapes
//	├── poke/            Direct construction with per-field initialization tracking
//	├── wip/             Frame-stack builder producing HeapValues
//	├── smartptr/        Box, Shared, Weak and Locked pointer types with shapes
//	├── errors/          Structured errors with phase, kind and path
//	├── format/json/     JSON over peek and wip
//	├── format/yaml/     YAML via gopkg.in/yaml.v3 nodes
//	├── format/msgpack/  MessagePack, optionally zstd compressed
//	├── args/            Command line arguments into structs
//	├── pretty/          Colored, indented value and shape printing
//	├── witabi/          Canonical ABI lowering and lifting over wazero memory
//	└── cmd/facet/       CLI exploring all of the above
//
// # Quick Start
//
// Read a value through its shape:
//
//	cfg := Config{Name: "api", Port: 8080}
//	p := facet.Peek(&cfg)
//	st, _ := p.Struct()
//	for f, v := range st.Fields() {
//	    fmt.Println(f.Name, v)
//	}
//
// Build one field by field:
//
//	cfg, err := facet.Build[Config](func(w *wip.Wip) error {
//	    if err := w.FieldNamed("Name"); err != nil {
//	        return err
//	    }
//	    if err := wip.Put(w, "api"); err != nil {
//	        return err
//	    }
//	    return w.Pop()
//	})
//
// Fields left unset fall back to their defaults when the struct or field allows it;
// otherwise Build reports which field is missing.
//
// # Thread Safety
//
// Shapes are immutable once derived and safe to share. Peek views are safe for
// concurrent reads of values nobody is writing. Wip, poke values and HeapValue are
// NOT thread-safe and belong to a single goroutine.
package facet
