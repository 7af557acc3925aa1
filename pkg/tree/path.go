package tree

import (
	"regexp"
	"strconv"
	"strings"

	perrors "github.com/matzehuels/parttree/pkg/errors"
)

const (
	// RootName is the name of every root node and the first segment of
	// every full path.
	RootName = "*"

	// Wildcard is the list-position token used in trigger keys and clean
	// paths. It never appears in a concrete path.
	Wildcard = "Item[]"

	// Separator joins path segments.
	Separator = "."

	// NameProperty and FullPathProperty are raised on a node's own
	// notification channel when its name or full path changes.
	NameProperty     = "Name"
	FullPathProperty = "FullPath"
)

var itemIndex = regexp.MustCompile(`Item\[[0-9]+\]`)

// ItemName returns the name of the list child at index.
func ItemName(index int) string {
	return "Item[" + strconv.Itoa(index) + "]"
}

// ParseItemName returns the index encoded in a concrete list-child segment.
func ParseItemName(segment string) (int, bool) {
	rest, ok := strings.CutPrefix(segment, "Item[")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutSuffix(rest, "]")
	if !ok || digits == "" {
		return 0, false
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return 0, false
		}
	}
	i, err := strconv.Atoi(digits)
	if err != nil {
		return 0, false
	}
	return i, true
}

// CleanName replaces every concrete list index with the wildcard token.
// It works on single names and dotted paths alike and is idempotent.
func CleanName(name string) string {
	return itemIndex.ReplaceAllLiteralString(name, Wildcard)
}

// JoinPath joins non-empty segments with the separator.
func JoinPath(segments ...string) string {
	var b strings.Builder
	for _, s := range segments {
		if s == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString(Separator)
		}
		b.WriteString(s)
	}
	return b.String()
}

// SplitPath splits a concrete dotted path into segments.
// Empty segments and malformed list segments are rejected; the wildcard is
// not allowed.
func SplitPath(path string) ([]string, error) {
	return split(path, false)
}

// ValidateTrigger checks the grammar of a dependency trigger key. Triggers
// may use the wildcard token in any list position.
func ValidateTrigger(trigger string) error {
	_, err := split(trigger, true)
	return err
}

func split(path string, wildcard bool) ([]string, error) {
	if path == "" {
		return nil, perrors.New(perrors.ErrCodeInvalidPath, "empty path")
	}
	segments := strings.Split(path, Separator)
	for i, s := range segments {
		if s == "" {
			return nil, perrors.New(perrors.ErrCodeInvalidPath, "path %q has an empty segment at %d", path, i)
		}
		if !strings.HasPrefix(s, "Item[") {
			continue
		}
		if s == Wildcard {
			if !wildcard {
				return nil, perrors.New(perrors.ErrCodeInvalidPath, "path %q uses %s outside a trigger", path, Wildcard)
			}
			continue
		}
		if _, ok := ParseItemName(s); !ok {
			return nil, perrors.New(perrors.ErrCodeInvalidPath, "path %q has malformed list segment %q", path, s)
		}
	}
	return segments, nil
}
