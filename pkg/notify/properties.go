package notify

import "fmt"

// PropertyChange describes a change of one named property.
//
// OldMeaningful is false when no previous value existed (the very first
// assignment) and for bare notifications raised with [Properties.Raise].
// NewMeaningful is false only for bare notifications.
type PropertyChange struct {
	Name          string
	Old           any
	New           any
	OldMeaningful bool
	NewMeaningful bool
}

// String renders the change for logs.
func (c PropertyChange) String() string {
	switch {
	case c.OldMeaningful && c.NewMeaningful:
		return fmt.Sprintf("%s: %v -> %v", c.Name, c.Old, c.New)
	case c.NewMeaningful:
		return fmt.Sprintf("%s: = %v", c.Name, c.New)
	default:
		return c.Name
	}
}

// Observable is implemented by anything that exposes a property-change channel.
type Observable interface {
	Properties() *Properties
}

// Properties is a per-object property-change channel.
// The zero value is ready for use.
type Properties struct {
	Feed[PropertyChange]
	assigned map[string]struct{}
}

// Raise publishes a bare notification for name. Subscribers should re-read
// the property.
func (p *Properties) Raise(name string) {
	p.Publish(PropertyChange{Name: name})
}

// Changed publishes an old -> new transition for name and records the
// property as assigned.
func (p *Properties) Changed(name string, oldValue, newValue any) {
	had := p.Assigned(name)
	p.markAssigned(name)
	p.Publish(PropertyChange{
		Name:          name,
		Old:           oldValue,
		New:           newValue,
		OldMeaningful: had,
		NewMeaningful: true,
	})
}

// Assigned reports whether name has been assigned through [Set] or
// [Properties.Changed] at least once.
func (p *Properties) Assigned(name string) bool {
	_, ok := p.assigned[name]
	return ok
}

func (p *Properties) markAssigned(name string) {
	if p.assigned == nil {
		p.assigned = make(map[string]struct{})
	}
	p.assigned[name] = struct{}{}
}

// Set assigns v to *field and publishes the change on p.
// Re-assigning an equal value after the first assignment publishes nothing.
// It reports whether a notification was published.
func Set[T comparable](p *Properties, field *T, name string, v T) bool {
	if p.Assigned(name) && *field == v {
		return false
	}
	old := *field
	*field = v
	p.Changed(name, old, v)
	return true
}
