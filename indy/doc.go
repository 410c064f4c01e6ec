// Package indy binds dynamically dispatched call sites.
//
// A CallSite is created once per source-level invocation by Bootstrap and
// caches a Binding: the selected target together with the guards under which
// it may be reused. Each call checks the guards; a failure (receiver or
// argument class change, a fired switch point, a different category frame)
// re-runs the Binder and publishes a fresh Binding with a single atomic swap.
//
// Call kinds:
//   - invoke:      method calls, including static and intercepted calls
//   - init:        constructor calls on a class reference
//   - getProperty: property reads
//   - setProperty: property writes
package indy
