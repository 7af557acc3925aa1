// Package server exposes a built part tree over a read-only HTTP API.
//
// Routes:
//
//	GET /healthz        liveness and build info
//	GET /nodes          every registered node, ordered by full path
//	GET /nodes/{path}   one node with its properties, children and triggers
//	GET /dot            the tree as Graphviz DOT
//
// A tree has a single logical owner, so the handler serializes every request
// on one lock.
package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/parttree/pkg/buildinfo"
	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/observability"
	"github.com/matzehuels/parttree/pkg/tree"
	"github.com/matzehuels/parttree/pkg/tree/dot"
)

// Valuer is implemented by parts that expose integer properties by name.
type Valuer interface {
	PropertyNames() []string
	Value(name string) (int, error)
}

// Handler serves one tree.
type Handler struct {
	mu     sync.Mutex
	root   *tree.Node
	logger *log.Logger
}

// NewHandler returns a handler for the tree rooted at root. A nil logger
// discards output.
func NewHandler(root *tree.Node, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Handler{root: root, logger: logger}
}

// Routes returns an http.Handler with all routes registered.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(h.observe)

	r.Get("/healthz", h.Health)
	r.Get("/nodes", h.List)
	r.Get("/nodes/{path}", h.Get)
	r.Get("/dot", h.DOT)
	return r
}

// observe reports every request to the server hooks and the logger.
func (h *Handler) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hooks := observability.Server()
		hooks.OnRequest(r.Context(), r.Method, r.URL.Path)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		elapsed := time.Since(start)

		hooks.OnResponse(r.Context(), r.Method, r.URL.Path, ww.Status(), elapsed)
		h.logger.Debug("request", "method", r.Method, "path", r.URL.Path, "status", ww.Status(), "elapsed", elapsed)
	})
}

// =============================================================================
// Response types
// =============================================================================

// HealthResponse is the body of GET /healthz.
type HealthResponse struct {
	Status string         `json:"status"`
	Nodes  int            `json:"nodes"`
	Build  buildinfo.Info `json:"build"`
}

// NodeSummary describes one node.
type NodeSummary struct {
	ID        string `json:"id"`
	Path      string `json:"path"`
	CleanPath string `json:"clean_path"`
	Part      string `json:"part"`
	State     string `json:"state"`
	Items     int    `json:"items"`
	Triggers  int    `json:"triggers"`
}

// Dependency lists the targets of one trigger.
type Dependency struct {
	Trigger string   `json:"trigger"`
	Targets []string `json:"targets"`
}

// NodeDetail is the body of GET /nodes/{path}.
type NodeDetail struct {
	NodeSummary
	Properties   map[string]int `json:"properties,omitempty"`
	Children     []string       `json:"children"`
	Dependencies []Dependency   `json:"dependencies"`
}

// ErrorResponse is the body of every error response.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// =============================================================================
// Handlers
// =============================================================================

// Health reports liveness.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	n := h.root.Registry().Len()
	h.mu.Unlock()
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ok", Nodes: n, Build: buildinfo.Current()})
}

// List returns every registered node.
// GET /nodes
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	nodes := h.root.Registry().Nodes()
	out := make([]NodeSummary, len(nodes))
	for i, n := range nodes {
		out[i] = summarize(n)
	}
	h.mu.Unlock()
	h.writeJSON(w, http.StatusOK, out)
}

// Get returns one node. The path is URL-escaped and may be a full path
// (starting with "*") or relative to the root.
// GET /nodes/{path}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	path, err := url.PathUnescape(chi.URLParam(r, "path"))
	if err != nil {
		h.writeError(w, http.StatusBadRequest, perrors.New(perrors.ErrCodeInvalidPath, "unescape %q", chi.URLParam(r, "path")))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	n, err := h.root.Resolve(path)
	if err != nil {
		status := http.StatusBadRequest
		if perrors.Is(err, perrors.ErrCodePathNotFound) {
			status = http.StatusNotFound
		}
		h.writeError(w, status, err)
		return
	}
	h.writeJSON(w, http.StatusOK, detail(n))
}

// DOT returns the tree as a Graphviz diagram with dependency edges.
// GET /dot
func (h *Handler) DOT(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	out := dot.ToDOT(h.root, dot.Options{Dependencies: true})
	h.mu.Unlock()

	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, out)
}

func summarize(n *tree.Node) NodeSummary {
	return NodeSummary{
		ID:        n.ID().String(),
		Path:      n.FullPath(),
		CleanPath: n.CleanFullPath(),
		Part:      fmt.Sprintf("%T", n.Part()),
		State:     n.State().String(),
		Items:     n.ItemCount(),
		Triggers:  n.Graph().Len(),
	}
}

func detail(n *tree.Node) NodeDetail {
	d := NodeDetail{NodeSummary: summarize(n), Children: []string{}, Dependencies: []Dependency{}}
	if v, ok := n.Part().(Valuer); ok {
		d.Properties = make(map[string]int)
		for _, name := range v.PropertyNames() {
			if x, err := v.Value(name); err == nil {
				d.Properties[name] = x
			}
		}
	}
	for _, c := range n.AllChildren() {
		d.Children = append(d.Children, c.FullPath())
	}
	for _, trigger := range n.Graph().Triggers() {
		dep := Dependency{Trigger: trigger}
		for _, t := range n.Graph().Targets(trigger) {
			dep.Targets = append(dep.Targets, t.Node.FullPath()+tree.Separator+t.Property)
		}
		d.Dependencies = append(d.Dependencies, dep)
	}
	return d
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Warn("encode response", "err", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	code := string(perrors.GetCode(err))
	if code == "" {
		code = string(perrors.ErrCodeInternal)
	}
	h.writeJSON(w, status, ErrorResponse{Code: code, Message: perrors.UserMessage(err)})
}
