package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/rbramwell/halin/internal/api"
	"github.com/rbramwell/halin/internal/engine"
	"github.com/rbramwell/halin/internal/format"
	"github.com/rbramwell/halin/internal/model"
	"github.com/rbramwell/halin/internal/publish"
	"github.com/rbramwell/halin/internal/security"
	"github.com/rbramwell/halin/internal/tui"
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...)
}

func newMembersCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "List discovered members with a single latency sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			obs := engine.NewPoller(c).PollOnce(ctx)
			t := newTable("MEMBER", "ROLE", "DATABASE", "PROTOCOLS", "LATENCY", "ERROR")
			for i, n := range c.Members() {
				latency := format.FormatLatency(-1)
				var errText string
				if o := obs[i]; o.Err == "" {
					latency = format.FormatLatency(o.Latency)
				} else {
					errText = o.Err
				}
				t.Row(n.Label(), string(n.Role()), n.Database(), strings.Join(n.Protocols(), ","), latency, errText)
			}
			fmt.Fprintln(cmd.OutOrStdout(), t.Render())
			return nil
		},
	}
}

func newDiagnosticsCmd(a *cli) *cobra.Command {
	var (
		out     string
		doPub   bool
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Collect a diagnostics package from every member",
		Long: "Collect a diagnostics package from every member.\n\n" +
			"The package is written as JSON unless --out ends in .csv. With --publish\n" +
			"it is also shipped to the configured publish backend.",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			pkg := engine.RunDiagnostics(ctx, c)
			if err := writePackage(cmd.OutOrStdout(), out, pkg); err != nil {
				return err
			}
			if !doPub {
				return nil
			}
			id, err := a.export(ctx, pkg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "published %d records as %s\n", len(pkg.Records), id)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "-", "output file; .csv selects CSV, - is stdout")
	cmd.Flags().BoolVar(&doPub, "publish", false, "also publish the package to publish.type")
	cmd.Flags().DurationVar(&timeout, "timeout", 2*time.Minute, "overall deadline for the run")
	return cmd
}

// createFile opens an output file; replaced in tests.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

// writePackage writes pkg to path, choosing CSV or JSON by extension.
func writePackage(stdout io.Writer, path string, pkg *model.Package) (err error) {
	w := stdout
	if path != "-" && path != "" {
		f, err := createFile(path)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", path, err)
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = fmt.Errorf("failed to close %s: %w", path, cerr)
			}
		}()
		w = f
	}
	return encodePackage(w, path, pkg)
}

func encodePackage(w io.Writer, path string, pkg *model.Package) error {
	if strings.EqualFold(filepath.Ext(path), ".csv") {
		return format.WriteCSV(w, pkg.Records)
	}
	return format.WriteJSON(w, pkg)
}

// export ships pkg through a publisher built from the publish config.
func (a *cli) export(ctx context.Context, pkg *model.Package) (string, error) {
	pub, err := publish.NewPublisher(a.cfg.Publish)
	if err != nil {
		return "", err
	}
	defer pub.Close()
	return publish.NewExporter(pub, a.cfg.Publish.Subject, a.log).Export(ctx, pkg)
}

func newAdviseCmd(a *cli) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "advise",
		Short: "Run diagnostics and print advisory findings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			findings := engine.NewAdvisor().Evaluate(engine.RunDiagnostics(ctx, c))
			printFindings(cmd.OutOrStdout(), findings, all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include PASS findings")
	return cmd
}

func printFindings(w io.Writer, findings []model.InspectionResult, all bool) {
	var shown int
	for _, f := range findings {
		if f.Level == model.LevelPass && !all {
			continue
		}
		shown++
		fmt.Fprintf(w, "[%s] %s: %s\n", f.Level, f.Category, f.Finding)
		if f.Recommendation != "" && f.Recommendation != model.NoActionNeeded {
			fmt.Fprintf(w, "       %s\n", f.Recommendation)
		}
	}
	if shown == 0 {
		fmt.Fprintln(w, "no issues found")
	}
}

func newWatchCmd(a *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Open the live terminal dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())
			return tui.Run(c)
		},
	}
}

func newServeCmd(a *cli) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and Prometheus metrics",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signalContext()
			defer cancel()

			c, err := a.connect(ctx)
			if err != nil {
				return err
			}
			defer c.Shutdown(context.Background())

			var opts []api.Option
			if a.cfg.Publish.Type != "" {
				pub, err := publish.NewPublisher(a.cfg.Publish)
				if err != nil {
					return err
				}
				defer pub.Close()
				opts = append(opts, api.WithExporter(publish.NewExporter(pub, a.cfg.Publish.Subject, a.log)))
			}
			srv := api.New(c, a.cfg.Server, opts...)

			poller := engine.NewPoller(c)
			poller.Start(ctx)
			defer poller.Stop()

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Listen(addr) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			a.log.Info("shutting down http api")
			shutdownCtx, stop := context.WithTimeout(context.Background(), 10*time.Second)
			defer stop()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to server.addr)")
	return cmd
}

func newUsersCmd(a *cli) *cobra.Command {
	parent := &cobra.Command{Use: "users", Short: "Manage native users"}
	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *security.Manager) error {
				users, err := m.ListUsers(ctx)
				if err != nil {
					return err
				}
				t := newTable("USERNAME", "ROLES", "FLAGS")
				for _, u := range users {
					t.Row(u.Username, strings.Join(u.Roles, ","), strings.Join(u.Flags, ","))
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	})
	parent.AddCommand(&cobra.Command{
		Use:   "delete <username>",
		Short: "Delete a user from every member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *security.Manager) error {
				action := "Deleting user " + args[0]
				res, err := m.DeleteUser(ctx, args[0])
				if err != nil {
					return errors.New(security.Failure(action, err).String())
				}
				return reportClusterOp(cmd.OutOrStdout(), security.FromClusterOp(action, res))
			})
		},
	})
	return parent
}

func newRolesCmd(a *cli) *cobra.Command {
	parent := &cobra.Command{Use: "roles", Short: "Manage roles (enterprise only)"}
	parent.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List roles and their users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *security.Manager) error {
				roles, err := m.ListRoles(ctx)
				if err != nil {
					return err
				}
				t := newTable("ROLE", "USERS", "BUILTIN")
				for _, r := range roles {
					t.Row(r.Name, strings.Join(r.Users, ","), fmt.Sprint(r.Builtin()))
				}
				fmt.Fprintln(cmd.OutOrStdout(), t.Render())
				return nil
			})
		},
	})
	parent.AddCommand(&cobra.Command{
		Use:   "delete <role>",
		Short: "Delete a role from every member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withManager(cmd, func(ctx context.Context, m *security.Manager) error {
				action := "Deleting role " + args[0]
				res, err := m.DeleteRole(ctx, args[0])
				if err != nil {
					return errors.New(security.Failure(action, err).String())
				}
				return reportClusterOp(cmd.OutOrStdout(), security.FromClusterOp(action, res))
			})
		},
	})
	return parent
}

func (a *cli) withManager(cmd *cobra.Command, fn func(context.Context, *security.Manager) error) error {
	ctx := cmd.Context()
	c, err := a.connect(ctx)
	if err != nil {
		return err
	}
	defer c.Shutdown(context.Background())
	return fn(ctx, security.NewManager(c))
}

// reportClusterOp prints a successful status and turns a failed one into an error.
func reportClusterOp(w io.Writer, st security.Status) error {
	if st.IsError {
		return errors.New(st.String())
	}
	fmt.Fprintln(w, st.String())
	return nil
}
