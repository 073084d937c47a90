package main

import (
	"github.com/spf13/cobra"

	"userpanel/internal/panel"
	"userpanel/internal/panel/render"
)

func attemptsCmd() *cobra.Command {
	var username string
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Show recent login attempts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			attempts := p.Attempts.Items()
			if username != "" {
				if attempts, err = p.LoginAttempts(cmd.Context(), username); err != nil {
					return err
				}
			}
			return write(cmd.OutOrStdout(), render.AttemptsView(attempts))
		},
	}
	cmd.Flags().StringVarP(&username, "username", "u", "", "only attempts for this username")
	return cmd
}

func devicesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List authorized devices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), render.DevicesView(p.Devices.Items()))
		},
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "revoke <id>",
		Short: "Remove an authorized device",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			return settle(p.RevokeDevice(cmd.Context(), args[0]))
		},
	})
	return cmd
}

func alertsCmd() *cobra.Command {
	var unread bool
	cmd := &cobra.Command{
		Use:   "alerts",
		Short: "List security alerts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			alerts := p.Alerts.Items()
			if unread {
				if alerts, err = p.UnreadAlerts(cmd.Context()); err != nil {
					return err
				}
			}
			return write(cmd.OutOrStdout(), render.AlertsView(alerts))
		},
	}
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread alerts")

	cmd.AddCommand(
		alertActionCmd("read <id>", "Mark an alert as read", (*panel.Panel).MarkAlertRead),
		alertActionCmd("dismiss <id>", "Delete an alert", (*panel.Panel).DismissAlert),
	)
	return cmd
}

func alertActionCmd(use, short string, action recordAction) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			return settle(action(p, cmd.Context(), args[0]))
		},
	}
}
