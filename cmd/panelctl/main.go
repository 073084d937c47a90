package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"userpanel/internal/config"
	"userpanel/internal/logger"
	"userpanel/internal/panel"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/panel/render"
	"userpanel/internal/panel/session"
	"userpanel/internal/panel/syncer"
)

var rootCmd = &cobra.Command{
	Use:           "panelctl",
	Short:         "panelctl administers userpanel users from the terminal",
	Long:          "panelctl talks to a userpanel proxy with the session token handed over by the portal.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logLevel, "text")
	},
}

var (
	apiURL    string
	tokenFile string
	portalURL string
	format    string
	logLevel  string
	timeout   time.Duration
)

func defaultTokenFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "userpanel", "session")
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func main() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&apiURL, "api", envOr("USERPANEL_API_URL", "http://localhost:3000"), "base URL of the userpanel proxy")
	flags.StringVar(&tokenFile, "token-file", defaultTokenFile(), "where the session token is kept between invocations")
	flags.StringVar(&portalURL, "portal-url", envOr("USERPANEL_PORTAL_URL", config.DefaultPortalURL), "portal to sign in through")
	flags.StringVarP(&format, "format", "o", "text", "output format: text or html")
	flags.StringVar(&logLevel, "log-level", "warn", "log level")
	flags.DurationVar(&timeout, "timeout", 30*time.Second, "request timeout")

	rootCmd.AddCommand(openCmd(), logoutCmd(), usersCmd(), attemptsCmd(), devicesCmd(), alertsCmd(), dashboardCmd(), watchCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newGate() *session.Gate {
	return session.NewGate(session.FileTokenStore{Path: tokenFile}, portalURL)
}

func openCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "open <panel-url>",
		Short: "Start a session from the URL the portal opened (it carries ?sessionToken=...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			gate := newGate()
			state, shown := gate.Check(args[0])
			if state != session.Authorized {
				return denied(cmd.OutOrStdout(), gate)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "session stored; panel address: %s\n", shown)
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return session.FileTokenStore{Path: tokenFile}.Clear()
		},
	}
}

func denied(w io.Writer, gate *session.Gate) error {
	view := gate.DeniedView()
	fmt.Fprintln(w, view.Message)
	fmt.Fprintln(w, "Portal:", view.PortalURL)
	return panel.ErrDenied
}

// connect checks the stored session, builds the panel and loads every view.
func connect(cmd *cobra.Command, onChange func(string)) (*panel.Panel, error) {
	gate := newGate()
	if state, _ := gate.Check(""); state != session.Authorized {
		return nil, denied(cmd.OutOrStdout(), gate)
	}

	client := apiclient.New(apiURL, gate.Token, apiclient.WithTimeout(timeout))
	p := panel.New(gate, client, panel.Config{
		Notifier: syncer.NotifierFunc(func(n syncer.Notice) {
			fmt.Fprintln(cmd.ErrOrStderr(), n.Message)
		}),
		OnChange: onChange,
	})

	if err := p.Sync(cmd.Context()); err != nil {
		if errors.Is(err, panel.ErrDenied) {
			return nil, denied(cmd.OutOrStdout(), gate)
		}
		return nil, errors.Wrap(err, "load panel")
	}
	return p, nil
}

// settle waits for the outcome of an optimistic mutation. The process exits
// right after, so a change that never reached the proxy is reported as an error.
func settle(done <-chan error, err error) error {
	if err != nil {
		return err
	}
	if err := <-done; err != nil {
		return err
	}
	return nil
}

func write(w io.Writer, v render.View) error {
	if format == "html" {
		return render.WriteHTML(w, v)
	}
	return render.WriteText(w, v)
}

func dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show user and login counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			stats, err := p.Dashboard(cmd.Context())
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), render.DashboardView(stats))
		},
	}
}

func watchCmd() *cobra.Command {
	var view string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep a view on screen and redraw it whenever it changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			cmd.SetContext(ctx)

			var p *panel.Panel
			draw := func(changed string) {
				if p == nil || changed != view {
					return
				}
				fmt.Fprint(cmd.OutOrStdout(), "\033[H\033[2J")
				if err := write(cmd.OutOrStdout(), currentView(p, view)); err != nil {
					log.Warnf("redraw failed: %v", err)
				}
			}

			var err error
			p, err = connect(cmd, draw)
			if err != nil {
				return err
			}
			draw(view)

			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&view, "view", panel.ViewUsers, "users, login-attempts, devices or alerts")
	return cmd
}

func currentView(p *panel.Panel, view string) render.View {
	switch view {
	case panel.ViewAttempts:
		return render.AttemptsView(p.Attempts.Items())
	case panel.ViewDevices:
		return render.DevicesView(p.Devices.Items())
	case panel.ViewAlerts:
		return render.AlertsView(p.Alerts.Items())
	default:
		return render.UsersView(p.Users.Items(), render.UserFilter{})
	}
}
