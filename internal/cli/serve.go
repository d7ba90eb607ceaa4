package cli

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/alnah/go-ballot/internal/config"
	"github.com/alnah/go-ballot/internal/interrupt"
	"github.com/alnah/go-ballot/internal/proxy"
)

type serveOptions struct {
	addr     string
	upstream string
	verbose  bool
}

// ServeCmd creates the serve command.
func ServeCmd(env *Env) *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the same-origin API proxy",
		Long: `Run the same-origin API proxy.

Requests to /api/proxy/<path> are forwarded to <upstream-url>/<path> with
their body, query, Content-Type and cookies; the upstream status, body and
Set-Cookie headers come back unchanged.

Also serves /health and Prometheus metrics at /metrics.
Press Ctrl+C to shut down gracefully; press it again within 2s to force.`,
		Example: `  ballot serve
  ballot serve --addr :8081 --upstream https://api.example.com/api`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.verbose = verbose(cmd)
			return runServe(cmd.Context(), env, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default from listen-addr)")
	cmd.Flags().StringVar(&opts.upstream, "upstream", "", "Upstream API base URL (default from upstream-url)")

	return cmd
}

func runServe(ctx context.Context, env *Env, opts serveOptions) error {
	cfg, err := env.ConfigLoader.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.addr != "" {
		cfg.ListenAddr = opts.addr
	}
	if opts.upstream != "" {
		if err := config.Validate(config.KeyUpstreamURL, opts.upstream); err != nil {
			return fmt.Errorf("%w: --upstream: %w", ErrInvalidValue, err)
		}
		cfg.UpstreamURL = opts.upstream
	}

	logger, err := buildLogger(env, cfg, opts.verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	srv, err := proxy.New(cfg.UpstreamURL, proxy.WithLogger(logger))
	if err != nil {
		return err
	}

	listen := env.Listen
	if listen == nil {
		listen = net.Listen
	}
	ln, err := listen("tcp", cfg.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.ListenAddr, err)
	}

	installInterrupts := env.Interrupts
	if installInterrupts == nil {
		installInterrupts = interrupt.NewHandler
	}
	handler, ctx := installInterrupts(ctx)
	defer handler.Stop()
	handler.OnAbort(func() {
		if err := srv.Close(); err != nil {
			logger.Warn("forced close failed", zap.Error(err))
		}
	})

	_, _ = fmt.Fprintf(env.Stderr, "Proxy listening on %s, forwarding %s to %s\n",
		ln.Addr(), proxy.Route, cfg.UpstreamURL)

	if err := srv.Serve(ctx, ln); err != nil {
		return err
	}

	_, _ = fmt.Fprintln(env.Stderr, "Proxy stopped.")
	return nil
}
