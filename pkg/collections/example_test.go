package collections_test

import (
	"fmt"

	"github.com/matzehuels/parttree/pkg/collections"
	"github.com/matzehuels/parttree/pkg/notify"
)

func ExampleOrderedIndexMap() {
	m := collections.NewOrderedIndexMap[string, int]()
	m.Changes().Subscribe(func(c collections.Change[int]) { fmt.Println(c) })
	m.Properties().Subscribe(func(c notify.PropertyChange) { fmt.Println("  raised", c.Name) })

	m.Put("a", 1)
	m.Put("b", 2)
	_ = m.Move(1, 0)
	fmt.Println(m.Keys())
	// Output:
	// add 1 at 0
	//   raised Count
	//   raised Item[]
	// add 1 at 1
	//   raised Count
	//   raised Item[]
	// move 1 -> 0
	//   raised Item[]
	// [b a]
}

func ExampleList() {
	l := collections.NewList("x", "y")
	if err := l.Insert(5, "gap"); err != nil {
		fmt.Println("error:", err)
	}
	_ = l.Set(2, "z")
	fmt.Println(l.Values())
	// Output:
	// error: INVALID_INDEX: insert at 5 (length 2): insert would leave a gap
	// [x y z]
}
