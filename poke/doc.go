// Package poke builds values of statically unknown type directly in memory.
//
// Memory comes from Alloc, which returns an Uninit view and the Guard that owns the
// allocation. Into turns the view into the poke matching its shape's Def. Struct pokes
// track initialized fields in an ISet: refilling a field drops its old value first,
// BuildInPlace refuses to finish while a field is missing, and Release drops exactly the
// fields that were set. Go has no destructors, so a construction that is abandoned must
// call Release and then Guard.Free.
package poke
