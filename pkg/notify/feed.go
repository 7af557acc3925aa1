package notify

// Feed is a synchronous list of subscribers for values of type T.
// The zero value is an empty feed ready for use.
type Feed[T any] struct {
	next uint64
	subs map[uint64]func(T)
}

// Subscription is the handle returned by [Feed.Subscribe].
// Calling Unsubscribe more than once is a no-op.
type Subscription struct {
	cancel func()
}

// Unsubscribe removes the handler from its feed.
func (s *Subscription) Unsubscribe() {
	if s == nil || s.cancel == nil {
		return
	}
	s.cancel()
	s.cancel = nil
}

// Active reports whether the subscription has not been cancelled yet.
func (s *Subscription) Active() bool {
	return s != nil && s.cancel != nil
}

// Subscribe registers fn and returns a handle that removes it again.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	if f.subs == nil {
		f.subs = make(map[uint64]func(T))
	}
	f.next++
	id := f.next
	f.subs[id] = fn
	return &Subscription{cancel: func() { delete(f.subs, id) }}
}

// Publish calls every subscriber with v.
func (f *Feed[T]) Publish(v T) {
	if len(f.subs) == 0 {
		return
	}
	ids := make([]uint64, 0, len(f.subs))
	for id := range f.subs {
		ids = append(ids, id)
	}
	for _, id := range ids {
		// skip handlers removed by an earlier handler of this dispatch
		if fn, ok := f.subs[id]; ok {
			fn(v)
		}
	}
}

// Len returns the number of live subscribers.
func (f *Feed[T]) Len() int { return len(f.subs) }

// Clear drops every subscriber.
func (f *Feed[T]) Clear() {
	clear(f.subs)
}

// Subscriptions groups handles so they can be cancelled together.
type Subscriptions []*Subscription

// Add appends s to the group.
func (g *Subscriptions) Add(s ...*Subscription) {
	*g = append(*g, s...)
}

// Unsubscribe cancels every handle in the group and empties it.
func (g *Subscriptions) Unsubscribe() {
	for _, s := range *g {
		s.Unsubscribe()
	}
	*g = (*g)[:0]
}
