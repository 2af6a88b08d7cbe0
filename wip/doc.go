// Package wip builds a value of statically unknown type through a stack of frames.
//
// A Wip starts with one frame for the value being built. Field, Push, PushMapKey,
// PushSome and PushPointee open a frame for a part of the current value; Put, Parse
// and PutDefault fill the current frame in one step; Pop finishes the current frame
// and hands its value to the parent. Every struct frame tracks its initialized fields
// in a poke.ISet, so Release can drop exactly what was built when construction stops
// half way.
//
//	w, _ := wip.Alloc[Person]()
//	w.FieldNamed("name")
//	wip.Put(w, "Alice")
//	w.Pop()
//	hv, err := w.Build()
//	p, err := wip.Materialize[Person](hv)
package wip
