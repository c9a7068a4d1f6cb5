package main

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"songrank/internal/remote"
	"songrank/internal/services"
)

func newAuthCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newLoginCommand(ctx),
		newLogoutCommand(ctx),
		newWhoamiCommand(ctx),
	}
}

func newLoginCommand(ctx *commandContext) *cobra.Command {
	var password string

	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in to the ranking backend",
		Long:  "Log in to the ranking backend. Without --password the password is read from the first line of stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			username := strings.TrimSpace(args[0])
			if username == "" {
				return fmt.Errorf("%w: username is empty", services.ErrValidation)
			}
			if !cmd.Flags().Changed("password") {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("%w: read password from stdin: %w", services.ErrValidation, err)
				}
				password = strings.TrimRight(line, "\r\n")
			}

			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sess, err := ctx.openSession()
			if err != nil {
				return err
			}
			client, err := remote.New(cfg, nil, ctx.loggerFor(cmd))
			if err != nil {
				return err
			}
			tokens, err := client.Login(cmd.Context(), username, password)
			if err != nil {
				return err
			}
			if err := ctx.withEditLock(func() error {
				return sess.Login(username, tokens.Access, tokens.Refresh)
			}); err != nil {
				return fmt.Errorf("store session: %w", err)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, map[string]any{"username": username, "ranking": sess.Ranking()})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", username)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "Password (read from stdin when omitted)")
	return cmd
}

func newLogoutCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget stored credentials and cached lists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditLock(func() error {
				return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
					username := ws.session.Username()
					if err := ws.session.Logout(); err != nil {
						return fmt.Errorf("clear session: %w", err)
					}
					if err := ws.snapshots.Clear(cmd.Context()); err != nil {
						return fmt.Errorf("clear cached lists: %w", err)
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, map[string]any{"logged_out": username != ""})
					}
					if username == "" {
						fmt.Fprintln(cmd.OutOrStdout(), "Not logged in; cached lists cleared")
						return nil
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Logged out %s\n", username)
					return nil
				})
			})
		},
	}
}

func newWhoamiCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the session and selected ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			sess, err := ctx.openSession()
			if err != nil {
				return err
			}
			expires, hasExpiry := sess.ExpiresAt()

			if ctx.jsonOutput() {
				payload := map[string]any{
					"username":   sess.Username(),
					"authorized": sess.Authorized(),
					"ranking":    sess.Ranking(),
					"backend":    cfg.Remote.BaseURL,
				}
				if hasExpiry {
					payload["access_expires_at"] = expires.UTC().Format(time.RFC3339)
				}
				return writeJSON(cmd, payload)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			switch {
			case sess.Authorized():
				fmt.Fprintln(out, renderStatusLine("User", statusOK, sess.Username(), colorize))
			case sess.Username() != "":
				fmt.Fprintln(out, renderStatusLine("User", statusWarn, sess.Username()+" (session expired, log in again)", colorize))
			default:
				fmt.Fprintln(out, renderStatusLine("User", statusInfo, "anonymous, lists are read-only", colorize))
			}
			if hasExpiry {
				kind := statusOK
				if time.Now().After(expires) {
					kind = statusWarn
				}
				fmt.Fprintln(out, renderStatusLine("Token", kind, "expires "+expires.Local().Format(time.DateTime), colorize))
			}
			fmt.Fprintln(out, renderStatusLine("Ranking", statusInfo, sess.Ranking(), colorize))
			fmt.Fprintln(out, renderStatusLine("Backend", statusInfo, cfg.Remote.BaseURL, colorize))
			return nil
		},
	}
}
