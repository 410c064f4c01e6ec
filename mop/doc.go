// Package mop implements the meta-object protocol for dynlink.
//
// This package contains:
//   - Runtime classes and the mapping from Go values to them
//   - Method descriptors and their invocation strategies
//   - Per-class meta-objects (reflective, helper, intercepting, null)
//   - The process-wide Registry with lock-free snapshot reads
//   - Switch points used to invalidate cached call-site bindings
//   - Thread-scoped categories
//   - The numeric promotion lattice and the method selector
package mop
