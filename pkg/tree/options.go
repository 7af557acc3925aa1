package tree

import (
	"io"

	"github.com/charmbracelet/log"
)

// Options configures a tree created with [NewRoot].
type Options struct {
	// Logger receives debug records for attach, detach, rename and
	// propagation. Defaults to a logger that discards everything.
	Logger *log.Logger
}

func (o *Options) withDefaults() Options {
	var out Options
	if o != nil {
		out = *o
	}
	if out.Logger == nil {
		out.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return out
}
