// Package pkg provides the libraries behind parttree, a reactive
// property-dependency runtime for trees of parts.
//
// # Overview
//
// A program models its data as a tree of parts (an order with lines, a room
// with shelves of books). Each part raises change notifications for its own
// properties; parttree turns declarations such as "my Total depends on
// Item[].Price" into notifications that arrive exactly when a matching
// change happens anywhere below, without the part scanning the tree.
//
// The packages layer as follows:
//
//	[notify]         property-change records, synchronous feeds
//	     ↓
//	[collections]    OrderedIndexMap and List with change descriptions
//	     ↓
//	[tree]           nodes, paths, dependency graphs, mirrors, registry
//	     ↓
//	[tree/dot]       Graphviz export
//
// [errors], [observability] and [buildinfo] are shared by all of them.
//
// # Quick Start
//
//	type Line struct {
//	    tree.Base
//	    price int
//	}
//
//	func (l *Line) SetPrice(v int) { notify.Set(l.Properties(), &l.price, "Price", v) }
//
//	type Order struct {
//	    tree.ListPart[*Line]
//	}
//
//	func (o *Order) DeclareDependencies(n *tree.Node) error {
//	    return n.DependsOnItems(n, "Price", "Total")
//	}
//
//	root, _ := tree.NewRoot(&Order{}, nil)
//	order, _ := tree.PartAs[*Order](root)
//	line := &Line{}
//	order.Append(line) // raises Total
//	line.SetPrice(3)   // raises Total
//
// # Main Packages
//
// [notify] - [notify.Properties] is the per-object change channel every part
// exposes. [notify.Feed] is the generic synchronous subscriber list used for
// every event stream in the module.
//
// [collections] - [collections.OrderedIndexMap] is addressable by key and by
// position and describes each mutation as a canonical change (add, remove,
// replace, move, reset). [collections.List] is the positional variant used
// for list parts.
//
// [tree] - The runtime itself: attaching parts as nodes, dotted paths with
// Item[i] list segments, dependency registration and bubbling, bidirectional
// list mirroring, and the root's full-path registry.
//
// [tree/dot] - DOT export with dependency edges, and SVG rendering.
//
// [errors] - Coded errors. Every failure carries a stable code such as
// PATH_NOT_FOUND or INVALID_INDEX.
//
// [observability] - Hook interfaces for tree structure, scenario steps and
// the inspection server, with no-op defaults.
//
// # Testing
//
//	go test ./pkg/...         # All tests
//	go test ./pkg/tree/...    # Specific package
//	go test -run Example      # Examples only
//
// [notify]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/notify
// [collections]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/collections
// [tree]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/tree
// [tree/dot]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/tree/dot
// [errors]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/errors
// [observability]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/observability
// [buildinfo]: https://pkg.go.dev/github.com/matzehuels/parttree/pkg/buildinfo
package pkg
