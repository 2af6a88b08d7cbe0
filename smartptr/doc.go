// Package smartptr provides owning and sharing handles that describe themselves to the shape
// package as smart pointers: Box owns one value, Shared counts references to one, Weak
// observes a Shared without keeping it alive, and Locked guards one behind a read-write lock.
package smartptr
