package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/matzehuels/parttree/internal/server"
	perrors "github.com/matzehuels/parttree/pkg/errors"
)

const shutdownTimeout = 5 * time.Second

// serveCommand creates the serve command.
func (c *CLI) serveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve <scenario>",
		Short: "Serve a scenario tree over a read-only HTTP API",
		Long: `Build a scenario tree, apply its steps and serve it until interrupted:

  GET /healthz        liveness and build info
  GET /nodes          every registered node
  GET /nodes/{path}   one node, e.g. /nodes/A.Item%5B0%5D
  GET /dot            the tree as Graphviz DOT`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := withLogger(cmd.Context(), c.Logger)
			r, err := c.buildRunner(ctx, args[0], true)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", c.cfg.Serve.Addr)
			if err != nil {
				return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "listen on %s", c.cfg.Serve.Addr)
			}
			srv := &http.Server{
				Handler:           server.NewHandler(r.Root(), c.Logger).Routes(),
				ReadHeaderTimeout: 5 * time.Second,
			}
			printInfo(cmd.OutOrStdout(), "Serving %s on %s", StyleValue.Render(r.Scenario().Name), StyleValue.Render("http://"+ln.Addr().String()))
			return serve(ctx, srv, ln)
		},
	}

	cmd.Flags().String("addr", defaultConfig().Serve.Addr, "listen address")
	_ = c.config.BindPFlag("serve.addr", cmd.Flags().Lookup("addr"))
	return cmd
}

// serve runs srv on ln until ctx is done, then shuts it down gracefully.
func serve(ctx context.Context, srv *http.Server, ln net.Listener) error {
	errc := make(chan error, 1)
	go func() { errc <- srv.Serve(ln) }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return ctx.Err()
}
