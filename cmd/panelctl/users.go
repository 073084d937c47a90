package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"userpanel/internal/model"
	"userpanel/internal/panel"
	"userpanel/internal/panel/apiclient"
	"userpanel/internal/panel/render"
)

// promptPassword reads without echo from a terminal, or one line from a pipe.
func promptPassword(w io.Writer, prompt string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && !errors.Is(err, io.EOF) {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}

	fmt.Fprint(w, prompt)
	pw, err := term.ReadPassword(fd)
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}

func usersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List and manage users",
	}
	cmd.AddCommand(usersListCmd(), usersShowCmd(), usersCreateCmd(), usersUpdateCmd(),
		usersToggleCmd("toggle-status", "Activate or deactivate a user", (*panel.Panel).ToggleStatus),
		usersToggleCmd("toggle-admin", "Grant or revoke administrator access", (*panel.Panel).ToggleAdmin),
		usersDeleteCmd(), usersResetPasswordCmd())
	return cmd
}

func usersListCmd() *cobra.Command {
	var f render.UserFilter
	var status, role string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f.Status = render.StatusFilter(status)
			f.Role = render.RoleFilter(role)

			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			return write(cmd.OutOrStdout(), render.UsersView(p.Users.Items(), f))
		},
	}
	cmd.Flags().StringVarP(&f.Search, "search", "s", "", "substring of name or username")
	cmd.Flags().StringVar(&status, "status", "all", "all, active or inactive")
	cmd.Flags().StringVar(&role, "role", "all", "all, admin or user")
	cmd.Flags().BoolVar(&f.SortByName, "sort", false, "sort by name")
	return cmd
}

func usersShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			u, err := p.User(cmd.Context(), args[0])
			if err != nil {
				return errors.Wrapf(err, "user %s", args[0])
			}
			return write(cmd.OutOrStdout(), render.UserDetail(u))
		},
	}
}

func usersCreateCmd() *cobra.Command {
	var in apiclient.NewUser

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user (the password is prompted for)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			if in.Password, err = promptPassword(cmd.ErrOrStderr(), "Password: "); err != nil {
				return err
			}
			_, done, err := p.CreateUser(cmd.Context(), in)
			return settle(done, err)
		},
	}
	cmd.Flags().StringVarP(&in.Username, "username", "u", "", "login name (stored lowercase)")
	cmd.Flags().StringVarP(&in.Name, "name", "n", "", "display name")
	cmd.Flags().BoolVar(&in.IsAdmin, "admin", false, "grant administrator access")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func usersUpdateCmd() *cobra.Command {
	var name, username string
	var admin, active, password bool

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change fields of a user; only the flags given are sent",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in apiclient.UserUpdate
			flags := cmd.Flags()
			if flags.Changed("name") {
				in.Name = &name
			}
			if flags.Changed("username") {
				in.Username = &username
			}
			if flags.Changed("admin") {
				in.IsAdmin = &admin
			}
			if flags.Changed("active") {
				in.IsActive = &active
			}

			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			if password {
				pw, err := promptPassword(cmd.ErrOrStderr(), "New password (blank keeps the current one): ")
				if err != nil {
					return err
				}
				in.Password = &pw
			}
			return settle(p.UpdateUser(cmd.Context(), args[0], in))
		},
	}
	cmd.Flags().StringVarP(&name, "name", "n", "", "display name")
	cmd.Flags().StringVarP(&username, "username", "u", "", "login name")
	cmd.Flags().BoolVar(&admin, "admin", false, "administrator access")
	cmd.Flags().BoolVar(&active, "active", true, "account enabled")
	cmd.Flags().BoolVar(&password, "password", false, "prompt for a new password")
	return cmd
}

type recordAction func(*panel.Panel, context.Context, string) (<-chan error, error)

func usersToggleCmd(use, short string, action recordAction) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
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

func usersDeleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a user; this cannot be undone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			u, ok := p.Users.Find(func(u model.User) bool { return u.ID == args[0] })
			if !ok {
				return errors.Wrapf(apiclient.ErrNotFound, "user %s", args[0])
			}
			if !yes && !confirm(cmd, fmt.Sprintf("Delete user %q? This cannot be undone.", u.Name)) {
				return nil
			}
			return settle(p.DeleteUser(cmd.Context(), args[0]))
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation")
	return cmd
}

func usersResetPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <id>",
		Short: "Set a new password for a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := connect(cmd, nil)
			if err != nil {
				return err
			}
			pw, err := promptPassword(cmd.ErrOrStderr(), "New password: ")
			if err != nil {
				return err
			}
			return p.ResetPassword(cmd.Context(), args[0], pw)
		},
	}
}

func confirm(cmd *cobra.Command, question string) bool {
	fmt.Fprintf(cmd.ErrOrStderr(), "%s [y/N] ", question)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
