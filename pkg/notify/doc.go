// Package notify provides the synchronous change-notification primitives used
// by parttree's containers and tree nodes.
//
// # Overview
//
// Every observable object in parttree (a part, a node, a container) owns one or
// more [Feed] values. A Feed is a plain subscriber list: [Feed.Publish] calls
// every live subscriber on the caller's goroutine before returning, so a
// property assignment can cascade into an arbitrarily deep chain of dependent
// notifications within the same call.
//
// Dispatch order across subscribers is unspecified and callers must not rely
// on registration order. Subscribing or unsubscribing from inside a handler is
// allowed: a handler removed during a dispatch is not called afterwards, and a
// handler added during a dispatch only sees later publications.
//
// # Properties
//
// [Properties] is the per-object property-change channel. It carries
// [PropertyChange] records with old/new values and "meaningful" flags. Use the
// generic [Set] helper to assign a field and publish in one step:
//
//	type Leaf struct {
//	    props notify.Properties
//	    value int
//	}
//
//	func (l *Leaf) SetValue(v int) { notify.Set(&l.props, &l.value, "Value", v) }
//
// The first assignment of a property reports OldMeaningful == false; every later
// assignment reports both flags true. [Properties.Raise] publishes a bare
// notification without values, which is how computed properties announce that
// they should be re-read.
//
// # Concurrency
//
// Feeds are not safe for concurrent use. parttree follows a single logical
// owner model: all mutation and dispatch happen on one goroutine.
package notify
