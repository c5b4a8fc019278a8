package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/storytime/pkg/config"
	"github.com/dmitrymomot/storytime/pkg/httpserver"
	"github.com/dmitrymomot/storytime/pkg/logger"
	"github.com/dmitrymomot/storytime/pkg/notifications"
	"github.com/dmitrymomot/storytime/pkg/pg"
	"github.com/dmitrymomot/storytime/svc/auth"
	"github.com/dmitrymomot/storytime/svc/profile"
)

var (
	errUnsupported    = errors.New("not supported by the configured auth driver")
	errUsage          = errors.New("usage")
	errSessionPending = errors.New("session not initialized")
)

// actionFunc runs one controller operation against a started app.
type actionFunc func(ctx context.Context, a *app) error

type cli struct {
	out io.Writer
	in  io.Reader
	cfg appConfig
	log *slog.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	c := &cli{out: out}

	root := &cobra.Command{
		Use:   "storytime",
		Short: "Drive the Storytime session controller from a terminal",
		Long: `Runs the session store, reconciler and auth controller against the
configured identity provider and prints the resulting session state.

Drivers are chosen with AUTH_DRIVER (memory, kratos), STORE_DRIVER
(memory, postgres) and CACHE_DRIVER (memory, redis). Accounts of the
memory auth driver live only as long as the process; use the shell
command to run several actions against one of them.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.Load(&c.cfg); err != nil {
				return err
			}
			c.in = cmd.InOrStdin()
			c.log = newLogger(c.cfg, cmd.ErrOrStderr())
			return nil
		},
	}

	root.AddCommand(
		c.loginCmd(),
		c.oauthCmd(),
		c.signupCmd(),
		c.logoutCmd(),
		c.resetPasswordCmd(),
		c.updatePasswordCmd(),
		c.confirmCmd(),
		c.recoverCmd(),
		c.stateCmd(),
		c.shellCmd(),
		c.watchCmd(),
		c.migrateCmd(),
	)
	return root
}

func loginAction(email, password string) actionFunc {
	return func(ctx context.Context, a *app) error {
		return a.controller.Login(ctx, email, password)
	}
}

func oauthAction(provider string) actionFunc {
	return func(ctx context.Context, a *app) error {
		return a.controller.LoginWithOAuth(ctx, provider)
	}
}

func signupAction(email, password, name string) actionFunc {
	return func(ctx context.Context, a *app) error {
		return a.controller.Signup(ctx, email, password, name)
	}
}

func logoutAction(ctx context.Context, a *app) error {
	a.controller.Logout(ctx)
	return nil
}

func resetPasswordAction(email string) actionFunc {
	return func(ctx context.Context, a *app) error {
		return a.controller.ResetPassword(ctx, email)
	}
}

func updatePasswordAction(password string) actionFunc {
	return func(ctx context.Context, a *app) error {
		return a.controller.UpdatePassword(ctx, password)
	}
}

func confirmAction(email string) actionFunc {
	return func(ctx context.Context, a *app) error {
		if a.confirm == nil {
			return fmt.Errorf("confirm: %w", errUnsupported)
		}
		return a.confirm(ctx, email)
	}
}

func recoverAction(token string) actionFunc {
	return func(ctx context.Context, a *app) error {
		if a.redeem == nil {
			return fmt.Errorf("recover: %w", errUnsupported)
		}
		if err := a.redeem(ctx, token); err != nil {
			a.controller.HandleError(ctx, err)
			return fmt.Errorf("recover: %w", err)
		}
		return nil
	}
}

func stateAction(context.Context, *app) error { return nil }

// perform runs fn, waits for the session to settle and reports the outcome.
func (a *app) perform(ctx context.Context, name string, fn actionFunc) (report, error) {
	wctx, cancel := context.WithCancel(ctx)
	defer cancel()

	changes := a.watchChanges(wctx)
	err := fn(ctx, a)
	a.settle(ctx, changes)
	return a.collect(ctx, name, err), err
}

// run starts an app, performs a single action and prints the report.
func (c *cli) run(cmd *cobra.Command, name string, fn actionFunc) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, c.cfg, c.log)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.start(ctx); err != nil {
		return err
	}
	a.collect(ctx, "startup", nil)

	r, actionErr := a.perform(ctx, name, fn)
	if err := writeReport(c.out, r); err != nil {
		return err
	}
	return actionErr
}

func (c *cli) loginCmd() *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "login", loginAction(email, password))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func (c *cli) oauthCmd() *cobra.Command {
	var provider string
	cmd := &cobra.Command{
		Use:   "oauth",
		Short: "Start an OAuth sign-in and print the authorization URL",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "oauth", oauthAction(provider))
		},
	}
	cmd.Flags().StringVar(&provider, "provider", auth.OAuthProviderGoogle, "google or github")
	return cmd
}

func (c *cli) signupCmd() *cobra.Command {
	var email, password, name string
	cmd := &cobra.Command{
		Use:   "signup",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "signup", signupAction(email, password, name))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&name, "name", "", "display name")
	return cmd
}

func (c *cli) logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and clear cached data",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "logout", logoutAction)
		},
	}
}

func (c *cli) resetPasswordCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "reset-password",
		Short: "Request a password reset email",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "reset-password", resetPasswordAction(email))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) updatePasswordCmd() *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "update-password",
		Short: "Change the signed-in user's password",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "update-password", updatePasswordAction(password))
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "new password")
	return cmd
}

func (c *cli) confirmCmd() *cobra.Command {
	var email string
	cmd := &cobra.Command{
		Use:   "confirm",
		Short: "Mark an account's email as verified (memory driver)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "confirm", confirmAction(email))
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	return cmd
}

func (c *cli) recoverCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Sign in with a password recovery token (memory driver)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "recover", recoverAction(token))
		},
	}
	cmd.Flags().StringVar(&token, "token", "", "recovery token")
	return cmd
}

func (c *cli) stateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state",
		Short: "Print the restored session state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return c.run(cmd, "state", stateAction)
		},
	}
}

// parseShellLine maps one shell line to an action.
func parseShellLine(line string) (string, actionFunc, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return "", nil, nil
	}
	name, args := fields[0], fields[1:]

	arity := func(n int, usage string) error {
		if len(args) != n {
			return fmt.Errorf("%w: %s %s", errUsage, name, usage)
		}
		return nil
	}

	switch name {
	case "login":
		if err := arity(2, "<email> <password>"); err != nil {
			return name, nil, err
		}
		return name, loginAction(args[0], args[1]), nil
	case "oauth":
		if err := arity(1, "<provider>"); err != nil {
			return name, nil, err
		}
		return name, oauthAction(args[0]), nil
	case "signup":
		if len(args) < 2 {
			return name, nil, fmt.Errorf("%w: signup <email> <password> [name...]", errUsage)
		}
		return name, signupAction(args[0], args[1], strings.Join(args[2:], " ")), nil
	case "logout":
		return name, logoutAction, arity(0, "")
	case "reset-password":
		if err := arity(1, "<email>"); err != nil {
			return name, nil, err
		}
		return name, resetPasswordAction(args[0]), nil
	case "update-password":
		if err := arity(1, "<password>"); err != nil {
			return name, nil, err
		}
		return name, updatePasswordAction(args[0]), nil
	case "confirm":
		if err := arity(1, "<email>"); err != nil {
			return name, nil, err
		}
		return name, confirmAction(args[0]), nil
	case "recover":
		if err := arity(1, "<token>"); err != nil {
			return name, nil, err
		}
		return name, recoverAction(args[0]), nil
	case "state":
		return name, stateAction, arity(0, "")
	}
	return name, nil, fmt.Errorf("%w: unknown command %q", errUsage, name)
}

func (c *cli) shellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Read actions from stdin, one per line, against a single session",
		Long: `Each line is an action followed by its arguments:

  signup <email> <password> [name...]
  confirm <email>
  login <email> <password>
  oauth <provider>
  reset-password <email>
  recover <token>
  update-password <password>
  logout
  state

A report is printed after every line. Failed actions do not stop the shell.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.start(ctx); err != nil {
				return err
			}
			a.collect(ctx, "startup", nil)

			scanner := bufio.NewScanner(c.in)
			for scanner.Scan() {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				name, fn, err := parseShellLine(scanner.Text())
				if err != nil {
					fmt.Fprintln(cmd.ErrOrStderr(), err)
					continue
				}
				if fn == nil {
					continue
				}
				r, _ := a.perform(ctx, name, fn)
				if _, err := io.WriteString(c.out, "---\n"); err != nil {
					return err
				}
				if err := writeReport(c.out, r); err != nil {
					return err
				}
			}
			return scanner.Err()
		},
	}
}

func (c *cli) watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep the session reconciled and serve metrics, health and state",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			a, err := newApp(ctx, c.cfg, c.log)
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.start(ctx); err != nil {
				return err
			}

			var srvCfg httpserver.Config
			if err := config.Load(&srvCfg); err != nil {
				return err
			}
			srv := httpserver.NewFromConfig(srvCfg, httpserver.WithLogger(c.log))
			router := httpserver.NewOpsRouter(a.registry, a.routerOptions()...)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error { return srv.Run(gctx, router) })
			g.Go(func() error {
				a.logTransitions(gctx)
				return nil
			})
			g.Go(func() error {
				a.printNotifications(gctx, c.out)
				return nil
			})
			if a.poll != nil {
				g.Go(func() error {
					if err := a.poll(gctx); err != nil && !errors.Is(err, context.Canceled) {
						return err
					}
					return nil
				})
			}
			return g.Wait()
		},
	}
}

func (c *cli) migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the profile store migrations to Postgres",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			var cfg pg.Config
			if err := config.Load(&cfg); err != nil {
				return err
			}
			pool, err := pg.Connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			return pg.Migrate(ctx, pool, profile.Migrations, cfg, c.log)
		},
	}
}

func (a *app) routerOptions() []httpserver.RouterOption {
	opts := []httpserver.RouterOption{
		httpserver.WithRouterLogger(a.log),
		httpserver.WithRoute("/state", a.stateHandler()),
		httpserver.WithCheck("session", func(context.Context) error {
			select {
			case <-a.reconciler.Ready():
				return nil
			default:
				return errSessionPending
			}
		}),
	}
	for name, check := range a.checks {
		opts = append(opts, httpserver.WithCheck(name, check))
	}
	return opts
}

func (a *app) logTransitions(ctx context.Context) {
	sub := a.store.Subscribe(ctx)
	defer sub.Close()

	for msg := range sub.Receive(ctx) {
		ch := msg.Data
		a.log.InfoContext(ctx, "session transition",
			logger.Action(string(ch.Action.Kind)),
			slog.Uint64("seq", ch.Seq),
			slog.Bool("authenticated", ch.Next.IsAuthenticated),
			logger.UserID(ch.Next.UserID()),
		)
	}
}

func (a *app) printNotifications(ctx context.Context, w io.Writer) {
	sub := a.delivery.Subscribe(ctx, notifications.Anonymous)
	defer sub.Close()

	for msg := range sub.Receive(ctx) {
		n := msg.Data
		if _, err := fmt.Fprintf(w, "[%s] %s: %s\n", n.Variant, n.Title, n.Description); err != nil {
			a.log.WarnContext(ctx, "failed to print notification", logger.Error(err))
		}
	}
}
