// Package scenario describes part trees declaratively and replays mutations
// against them.
//
// A scenario file (TOML or YAML) declares part types, the root type, and a
// list of steps. Types carry integer fields, named children, an item type
// for list children, and computed properties written as expr-lang
// expressions. The [Runner] builds the tree with [tree.NewRoot], applies the
// steps in order, and checks expect steps against the live tree.
//
//	name = "totals"
//	root = "Cart"
//
//	[[types]]
//	name = "Cart"
//	items = "Line"
//	computed = [{ name = "Total", expr = 'sumOf("Item[].Price")', on = ["Item[].Price"] }]
//
//	[[types]]
//	name = "Line"
//	fields = { Price = 0 }
//
//	[[steps]]
//	op = "append"
//	path = "*"
//
//	[[steps]]
//	op = "set"
//	path = "Item[0]"
//	field = "Price"
//	value = 5
//
//	[[steps]]
//	op = "expect"
//	path = "*"
//	field = "Total"
//	want = 5
//	raises = 1
package scenario

import (
	"bytes"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/expr-lang/expr"
	"gopkg.in/yaml.v3"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/tree"
)

// Step operations.
const (
	OpAppend   = "append"
	OpInsert   = "insert"
	OpRemove   = "remove"
	OpMove     = "move"
	OpClear    = "clear"
	OpSet      = "set"
	OpRename   = "rename"
	OpDetach   = "detach"
	OpReparent = "reparent"
	OpExpect   = "expect"
)

var validOps = []string{OpAppend, OpInsert, OpRemove, OpMove, OpClear, OpSet, OpRename, OpDetach, OpReparent, OpExpect}

// Scenario is a decoded scenario file.
type Scenario struct {
	Name        string `toml:"name" yaml:"name"`
	Description string `toml:"description" yaml:"description"`
	Root        string `toml:"root" yaml:"root"`
	Types       []Type `toml:"types" yaml:"types"`
	Steps       []Step `toml:"steps" yaml:"steps"`

	types map[string]*Type
}

// Type declares a part type.
type Type struct {
	Name     string         `toml:"name" yaml:"name"`
	Fields   map[string]int `toml:"fields" yaml:"fields"`
	Children []Child        `toml:"children" yaml:"children"`
	// Items names the type of list children created by append and insert
	// steps that do not name one.
	Items string `toml:"items" yaml:"items"`
	// Count list children of type Items are created with each instance.
	Count    int        `toml:"count" yaml:"count"`
	Computed []Computed `toml:"computed" yaml:"computed"`
}

// Child is a named child declared by a type.
type Child struct {
	Name string `toml:"name" yaml:"name"`
	Type string `toml:"type" yaml:"type"`
}

// Computed is a property evaluated from Expr and raised whenever one of the
// On triggers fires on the owning node.
type Computed struct {
	Name string   `toml:"name" yaml:"name"`
	Expr string   `toml:"expr" yaml:"expr"`
	On   []string `toml:"on" yaml:"on"`
}

// Step is one mutation or expectation. Which fields are read depends on Op.
type Step struct {
	Op     string `toml:"op" yaml:"op"`
	Path   string `toml:"path" yaml:"path"`
	Type   string `toml:"type" yaml:"type"`
	Index  int    `toml:"index" yaml:"index"`
	To     int    `toml:"to" yaml:"to"`
	Count  int    `toml:"count" yaml:"count"`
	Field  string `toml:"field" yaml:"field"`
	Value  int    `toml:"value" yaml:"value"`
	Name   string `toml:"name" yaml:"name"`
	Target string `toml:"target" yaml:"target"`
	Want   *int   `toml:"want" yaml:"want"`
	Raises *int   `toml:"raises" yaml:"raises"`
}

func (s Step) String() string {
	switch s.Op {
	case OpAppend:
		if s.Type == "" {
			return "append at " + s.Path
		}
		return fmt.Sprintf("append %s at %s", s.Type, s.Path)
	case OpInsert:
		if s.Type == "" {
			return fmt.Sprintf("insert at %s[%d]", s.Path, s.Index)
		}
		return fmt.Sprintf("insert %s at %s[%d]", s.Type, s.Path, s.Index)
	case OpRemove:
		return fmt.Sprintf("remove %s[%d]", s.Path, s.Index)
	case OpMove:
		return fmt.Sprintf("move %s[%d] -> %d", s.Path, s.Index, s.To)
	case OpSet:
		return fmt.Sprintf("set %s.%s = %d", s.Path, s.Field, s.Value)
	case OpRename:
		return fmt.Sprintf("rename %s -> %s", s.Path, s.Name)
	case OpReparent:
		return fmt.Sprintf("reparent %s -> %s", s.Path, s.Target)
	case OpExpect:
		return fmt.Sprintf("expect %s.%s", s.Path, s.Field)
	default:
		return s.Op + " " + s.Path
	}
}

// Load reads and validates the scenario file at path. The format follows the
// file extension.
func Load(path string) (*Scenario, error) {
	format, err := perrors.ValidateScenarioFilename(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "scenario %s", path)
		}
		return nil, err
	}
	return Decode(data, format)
}

// Decode parses data as "toml" or "yaml" and validates the result. Unknown
// keys are rejected.
func Decode(data []byte, format string) (*Scenario, error) {
	var sc Scenario
	switch format {
	case "toml":
		md, err := toml.Decode(string(data), &sc)
		if err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidScenario, err, "decode toml")
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return nil, perrors.New(perrors.ErrCodeInvalidScenario, "unknown key %q", undecoded[0].String())
		}
	case "yaml":
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&sc); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidScenario, err, "decode yaml")
		}
	default:
		return nil, perrors.New(perrors.ErrCodeInvalidFormat, "unsupported scenario format %q", format)
	}
	if err := sc.Validate(); err != nil {
		return nil, err
	}
	return &sc, nil
}

// Type returns the type declared as name.
func (sc *Scenario) Type(name string) (*Type, bool) {
	if sc.types == nil {
		sc.index()
	}
	t, ok := sc.types[name]
	return t, ok
}

func (sc *Scenario) index() {
	sc.types = make(map[string]*Type, len(sc.Types))
	for i := range sc.Types {
		sc.types[sc.Types[i].Name] = &sc.Types[i]
	}
}

// Validate checks type references, names, expressions, triggers and steps.
func (sc *Scenario) Validate() error {
	invalid := func(format string, args ...any) error {
		return perrors.New(perrors.ErrCodeInvalidScenario, format, args...)
	}

	sc.types = make(map[string]*Type, len(sc.Types))
	for i := range sc.Types {
		t := &sc.Types[i]
		if t.Name == "" {
			return invalid("type %d has no name", i)
		}
		if _, dup := sc.types[t.Name]; dup {
			return invalid("type %q declared twice", t.Name)
		}
		sc.types[t.Name] = t
	}
	if _, ok := sc.types[sc.Root]; !ok {
		return invalid("root type %q is not declared", sc.Root)
	}

	for _, t := range sc.Types {
		if err := sc.validateType(&t); err != nil {
			return err
		}
	}
	if err := sc.checkCycles(); err != nil {
		return err
	}

	for i, s := range sc.Steps {
		if err := sc.validateStep(s); err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidScenario, err, "step %d (%s)", i, s.Op)
		}
	}
	return nil
}

func (sc *Scenario) validateType(t *Type) error {
	invalid := func(format string, args ...any) error {
		return perrors.New(perrors.ErrCodeInvalidScenario, "type %q: "+format, append([]any{t.Name}, args...)...)
	}

	names := make(map[string]bool)
	for f := range t.Fields {
		if err := perrors.ValidateName(f); err != nil {
			return invalid("field: %v", err)
		}
		names[f] = true
	}
	for _, c := range t.Children {
		if _, ok := sc.types[c.Type]; !ok {
			return invalid("child %q has undeclared type %q", c.Name, c.Type)
		}
		if c.Name == tree.RootName || strings.HasPrefix(c.Name, "Item[") {
			return invalid("child name %q is reserved", c.Name)
		}
		if err := perrors.ValidateName(c.Name); err != nil {
			return invalid("child: %v", err)
		}
	}
	if t.Items != "" {
		if _, ok := sc.types[t.Items]; !ok {
			return invalid("item type %q is not declared", t.Items)
		}
	}
	if t.Count < 0 {
		return invalid("negative count %d", t.Count)
	}
	if t.Count > 0 && t.Items == "" {
		return invalid("count without an item type")
	}

	for _, c := range t.Computed {
		if names[c.Name] {
			return invalid("computed %q clashes with a field", c.Name)
		}
		if err := perrors.ValidateName(c.Name); err != nil {
			return invalid("computed: %v", err)
		}
		names[c.Name] = true
		if _, err := expr.Compile(c.Expr, exprOptions(t, nil)...); err != nil {
			return invalid("computed %q: %v", c.Name, err)
		}
		for _, on := range c.On {
			if err := tree.ValidateTrigger(on); err != nil {
				return invalid("computed %q: %v", c.Name, err)
			}
			if err := sc.checkTrigger(t, on); err != nil {
				return invalid("computed %q: %v", c.Name, err)
			}
		}
	}
	return nil
}

// checkTrigger walks trigger through the type composition below owner.
// Every segment must reach a child or a list level that holds items; the
// last one may name a field or computed property instead. A list whose type
// declares no item type can hold any type an append or insert step names.
func (sc *Scenario) checkTrigger(owner *Type, trigger string) error {
	segments := strings.Split(trigger, tree.Separator)
	current := []*Type{owner}
	if segments[0] == tree.RootName {
		current = []*Type{sc.types[sc.Root]}
		segments = segments[1:]
	}
	for i, seg := range segments {
		last := i == len(segments)-1
		var next []*Type
		for _, t := range current {
			if last && t.hasProperty(seg) {
				return nil
			}
			for _, nt := range sc.segmentTypes(t, seg) {
				if !slices.Contains(next, nt) {
					next = append(next, nt)
				}
			}
		}
		if len(next) == 0 {
			return fmt.Errorf("trigger %q: %q matches nothing below %s", trigger, seg, typeNames(current))
		}
		current = next
	}
	return nil
}

// segmentTypes returns the types a path segment can lead to from t.
func (sc *Scenario) segmentTypes(t *Type, seg string) []*Type {
	if seg == tree.Wildcard || strings.HasPrefix(seg, "Item[") {
		if t.Items != "" {
			return []*Type{sc.types[t.Items]}
		}
		var types []*Type
		for _, s := range sc.Steps {
			if (s.Op == OpAppend || s.Op == OpInsert) && s.Type != "" {
				if it, ok := sc.types[s.Type]; ok && !slices.Contains(types, it) {
					types = append(types, it)
				}
			}
		}
		return types
	}
	for _, c := range t.Children {
		if c.Name == seg {
			return []*Type{sc.types[c.Type]}
		}
	}
	return nil
}

func (t *Type) hasProperty(name string) bool {
	if _, ok := t.Fields[name]; ok {
		return true
	}
	return slices.ContainsFunc(t.Computed, func(c Computed) bool { return c.Name == name })
}

func typeNames(types []*Type) string {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = t.Name
	}
	return strings.Join(names, "|")
}

// checkCycles rejects types that would instantiate themselves.
func (sc *Scenario) checkCycles() error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int)
	var visit func(name string, path []string) error
	visit = func(name string, path []string) error {
		switch state[name] {
		case visiting:
			return perrors.New(perrors.ErrCodeInvalidScenario, "type cycle %v", append(path, name))
		case done:
			return nil
		}
		state[name] = visiting
		t := sc.types[name]
		for _, c := range t.Children {
			if err := visit(c.Type, append(path, name)); err != nil {
				return err
			}
		}
		if t.Count > 0 {
			if err := visit(t.Items, append(path, name)); err != nil {
				return err
			}
		}
		state[name] = done
		return nil
	}
	for _, t := range sc.Types {
		if err := visit(t.Name, nil); err != nil {
			return err
		}
	}
	return nil
}

func (sc *Scenario) validateStep(s Step) error {
	if !slices.Contains(validOps, s.Op) {
		return perrors.New(perrors.ErrCodeInvalidScenario, "unknown op %q (must be one of %v)", s.Op, validOps)
	}
	if s.Path != "" {
		if _, err := tree.SplitPath(s.Path); err != nil {
			return err
		}
	}
	if s.Type != "" {
		if _, ok := sc.types[s.Type]; !ok {
			return perrors.New(perrors.ErrCodeInvalidScenario, "undeclared type %q", s.Type)
		}
	}

	missing := func(field string) error {
		return perrors.New(perrors.ErrCodeInvalidScenario, "%s needs %s", s.Op, field)
	}
	switch s.Op {
	case OpSet:
		if s.Field == "" {
			return missing("field")
		}
	case OpRename:
		if s.Name == "" {
			return missing("name")
		}
	case OpReparent:
		if s.Target == "" {
			return missing("target")
		}
	case OpExpect:
		if s.Field == "" {
			return missing("field")
		}
		if s.Want == nil && s.Raises == nil {
			return missing("want or raises")
		}
	}
	return nil
}
