package scenario

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	perrors "github.com/matzehuels/parttree/pkg/errors"
	"github.com/matzehuels/parttree/pkg/observability"
	"github.com/matzehuels/parttree/pkg/tree"
)

func mustDecode(t *testing.T, data string) *Scenario {
	t.Helper()
	sc, err := Decode([]byte(data), "toml")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	return sc
}

func mustRunner(t *testing.T, sc *Scenario) *Runner {
	t.Helper()
	r, err := NewRunner(sc, nil)
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return r
}

func TestRunBuiltins(t *testing.T) {
	for _, name := range Builtins() {
		t.Run(name, func(t *testing.T) {
			sc, err := Builtin(name)
			if err != nil {
				t.Fatal(err)
			}
			report, err := mustRunner(t, sc).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			for _, res := range report.Results {
				if res.Err != nil {
					t.Errorf("step %d (%s): %v", res.Index, res.Step, res.Err)
				}
			}
		})
	}
}

func TestRunBubbling(t *testing.T) {
	sc, err := Builtin("bubbling")
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	r, err := NewRunner(sc, &Options{Logger: log.NewWithOptions(&buf, log.Options{Level: log.InfoLevel})})
	if err != nil {
		t.Fatal(err)
	}

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if !report.OK() {
		for _, res := range report.Results {
			if res.Err != nil {
				t.Errorf("step %d (%s): %v", res.Index, res.Step, res.Err)
			}
		}
	}
	if len(report.Results) != len(sc.Steps) {
		t.Errorf("len(Results) = %v, want %v", len(report.Results), len(sc.Steps))
	}
	if !r.Done() {
		t.Error("Done() = false after Run")
	}
	if !strings.Contains(buf.String(), "property=ValueSum value=60") {
		t.Errorf("log missing computed notification:\n%s", buf.String())
	}
}

func TestRunCart(t *testing.T) {
	r := mustRunner(t, mustDecode(t, cartTOML))

	if got := r.Root().ItemCount(); got != 2 {
		t.Fatalf("initial ItemCount() = %v, want 2", got)
	}
	report, err := r.Run(context.Background())
	if err != nil || !report.OK() {
		t.Fatalf("Run() = %+v, %v", report, err)
	}
}

func TestRunExpectationFailure(t *testing.T) {
	sc := mustDecode(t, cartTOML+`
[[steps]]
op = "expect"
path = "*"
field = "Total"
want = 100

[[steps]]
op = "set"
path = "Item[1]"
field = "Price"
value = 0
`)
	r := mustRunner(t, sc)

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v, want failures recorded", err)
	}
	failures := report.Failures()
	if len(failures) != 1 {
		t.Fatalf("Failures() = %v, want 1", failures)
	}
	var e *perrors.ExpectationError
	if !errors.As(failures[0].Err, &e) {
		t.Fatalf("failure error = %T", failures[0].Err)
	}
	if e.Path != "*.Total" || e.Want != 100 || e.Got != 8 {
		t.Errorf("ExpectationError = %+v", e)
	}
	if len(report.Results) != len(sc.Steps) {
		t.Errorf("run stopped after %d steps, want %d", len(report.Results), len(sc.Steps))
	}
}

func TestRunStopsOnStepError(t *testing.T) {
	sc := mustDecode(t, cartTOML+`
[[steps]]
op = "remove"
path = "*"
index = 7

[[steps]]
op = "clear"
path = "*"
`)
	r := mustRunner(t, sc)

	report, err := r.Run(context.Background())
	if !perrors.Is(err, perrors.ErrCodeInvalidIndex) {
		t.Fatalf("Run() error = %v, want %v", err, perrors.ErrCodeInvalidIndex)
	}
	if len(report.Results) != 3 {
		t.Errorf("len(Results) = %v, want 3", len(report.Results))
	}
	if r.Root().ItemCount() != 2 {
		t.Error("steps after the failure were applied")
	}
}

func TestRunCancelled(t *testing.T) {
	r := mustRunner(t, mustDecode(t, cartTOML))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := r.Run(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
	if len(report.Results) != 0 {
		t.Errorf("len(Results) = %v, want 0", len(report.Results))
	}
}

const shelfTOML = `
name = "shelves"
root = "Room"

[[types]]
name = "Room"
children = [{ name = "Left", type = "Shelf" }, { name = "Right", type = "Shelf" }]
computed = [{ name = "Books", expr = 'countOf("Left.Item[]") + countOf("Right.Item[]")', on = ["Left.Item[]", "Right.Item[]"] }]

[[types]]
name = "Shelf"
items = "Book"
count = 1
computed = [{ name = "Pages", expr = 'sumOf("Item[].Pages")', on = ["Item[].Pages"] }]

[[types]]
name = "Book"
fields = { Pages = 100 }

[[steps]]
op = "insert"
path = "Left"
index = 0

[[steps]]
op = "reparent"
path = "Left.Item[1]"
target = "Right"

[[steps]]
op = "expect"
path = "Right"
field = "Pages"
want = 200

[[steps]]
op = "expect"
path = "*"
field = "Books"
want = 3

[[steps]]
op = "rename"
path = "Left"
name = "Top"

[[steps]]
op = "detach"
path = "Right.Item[0]"

[[steps]]
op = "expect"
path = "Right"
field = "Pages"
want = 100
raises = 1
`

func TestRunStructuralOps(t *testing.T) {
	r := mustRunner(t, mustDecode(t, shelfTOML))

	report, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for _, res := range report.Results {
		if res.Err != nil {
			t.Errorf("step %d (%s): %v", res.Index, res.Step, res.Err)
		}
	}

	if _, err := r.Root().Resolve("Top.Item[0]"); err != nil {
		t.Errorf("Resolve(Top.Item[0]) error = %v", err)
	}
	if _, err := r.Root().Resolve("Left"); !perrors.Is(err, perrors.ErrCodePathNotFound) {
		t.Errorf("Resolve(Left) error = %v, want %v", err, perrors.ErrCodePathNotFound)
	}
	if got := r.Root().Registry().Len(); got != 5 {
		t.Errorf("registry Len() = %v, want 5 (%v)", got, r.Root().Registry().Paths())
	}
}

type recordingHooks struct {
	observability.NoopScenarioHooks
	started, completed []string
	errs               int
}

func (h *recordingHooks) OnStepStart(_ context.Context, _ int, op string) {
	h.started = append(h.started, op)
}

func (h *recordingHooks) OnStepComplete(_ context.Context, _ int, op string, _ time.Duration, err error) {
	h.completed = append(h.completed, op)
	if err != nil {
		h.errs++
	}
}

func TestStepHooks(t *testing.T) {
	hooks := &recordingHooks{}
	observability.SetScenarioHooks(hooks)
	t.Cleanup(observability.Reset)

	r := mustRunner(t, mustDecode(t, cartTOML))
	for !r.Done() {
		r.Step(context.Background())
	}

	want := "set,expect"
	if got := strings.Join(hooks.started, ","); got != want {
		t.Errorf("started = %v, want %v", got, want)
	}
	if got := strings.Join(hooks.completed, ","); got != want {
		t.Errorf("completed = %v, want %v", got, want)
	}
	if hooks.errs != 0 {
		t.Errorf("errs = %v, want 0", hooks.errs)
	}
	if r.Position() != 2 {
		t.Errorf("Position() = %v, want 2", r.Position())
	}
}

func TestPartValues(t *testing.T) {
	r := mustRunner(t, mustDecode(t, shelfTOML))
	room, err := tree.PartAs[*Part](r.Root())
	if err != nil {
		t.Fatal(err)
	}

	if got, err := room.Value("Books"); err != nil || got != 2 {
		t.Errorf("Value(Books) = %v, %v, want 2", got, err)
	}
	if _, err := room.Value("Nope"); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("Value(Nope) error = %v, want %v", err, perrors.ErrCodeInvalidInput)
	}
	if err := room.Set("Books", 3); !perrors.Is(err, perrors.ErrCodeInvalidInput) {
		t.Errorf("Set(Books) error = %v, want %v", err, perrors.ErrCodeInvalidInput)
	}

	shelf, err := tree.ChildPart[*Part](r.Root(), "Left")
	if err != nil {
		t.Fatal(err)
	}
	if got := shelf.PropertyNames(); len(got) != 1 || got[0] != "Pages" {
		t.Errorf("PropertyNames() = %v, want [Pages]", got)
	}
	book, err := tree.ChildPart[*Part](r.Root(), "Left.Item[0]")
	if err != nil {
		t.Fatal(err)
	}
	if err := book.Set("Pages", 100); err != nil {
		t.Fatal(err)
	}
	if err := book.Set("Pages", 100); err != nil {
		t.Fatal(err)
	}
	if got := book.Raised("Pages"); got != 1 {
		t.Errorf("Raised(Pages) = %v, want 1", got)
	}
	if got := shelf.Raised("Pages"); got != 1 {
		t.Errorf("shelf Raised(Pages) = %v, want 1", got)
	}
}

func TestValueAmbiguousPath(t *testing.T) {
	sc := mustDecode(t, `
name = "ambiguous"
root = "R"

[[types]]
name = "R"
items = "L"
count = 2
computed = [{ name = "V", expr = 'valueOf("Item[].X")', on = ["Item[].X"] }]

[[types]]
name = "L"
fields = { X = 1 }
`)
	r := mustRunner(t, sc)
	p, _ := tree.PartAs[*Part](r.Root())
	if _, err := p.Value("V"); err == nil || !strings.Contains(err.Error(), "matched 2 nodes") {
		t.Errorf("Value(V) error = %v, want an ambiguity error", err)
	}
}

func TestRunExampleFiles(t *testing.T) {
	files, err := filepath.Glob(filepath.Join("..", "..", "examples", "scenarios", "*"))
	if err != nil {
		t.Fatal(err)
	}
	if len(files) == 0 {
		t.Fatal("no example scenarios found")
	}
	for _, file := range files {
		t.Run(filepath.Base(file), func(t *testing.T) {
			sc, err := Load(file)
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			report, err := mustRunner(t, sc).Run(context.Background())
			if err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if !report.OK() {
				t.Errorf("failures: %v", report.Failures())
			}
		})
	}
}
