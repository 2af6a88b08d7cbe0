// Package witabi moves reflected values across the WebAssembly component model
// canonical ABI.
//
// TypeOf maps a shape to its component model type. A Lowerer writes a value into
// guest memory in that type's canonical layout, allocating room for strings and
// list contents from an Allocator. A Lifter reads such a layout back and builds a
// new value through a wip.Wip, so a failure part way leaves nothing half built.
//
//	mem := witabi.WrapMemory(mod.Memory())
//	alloc := witabi.WrapAllocator(ctx, mod.ExportedFunction("cabi_realloc"))
//
//	l := witabi.NewLowerer(mem, alloc, witabi.DefaultOptions())
//	addr, err := witabi.LowerValue(l, &req)
//	...
//	resp, err := witabi.LiftValue[Response](witabi.NewLifter(mem, witabi.DefaultOptions()), ret)
//
// Errors carry the lower or lift phase and the path to the offending value.
package witabi
