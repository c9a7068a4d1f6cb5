package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"songrank/internal/ranking"
	"songrank/internal/services"
)

func newRankingsCommand(ctx *commandContext) *cobra.Command {
	rankingsCmd := &cobra.Command{
		Use:     "rankings",
		Aliases: []string{"lists"},
		Short:   "List, create and select named rankings",
	}
	rankingsCmd.AddCommand(newRankingsListCommand(ctx))
	rankingsCmd.AddCommand(newRankingsCreateCommand(ctx))
	rankingsCmd.AddCommand(newRankingsUseCommand(ctx))
	return rankingsCmd
}

type rankingJSON struct {
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedOn time.Time `json:"created_on"`
	Selected  bool      `json:"selected"`
}

func newRankingsListCommand(ctx *commandContext) *cobra.Command {
	var offline bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show every ranking",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
				lists, err := fetchRankings(cmd, ws, offline)
				if err != nil {
					return err
				}
				selected := ws.session.Ranking()

				if ctx.jsonOutput() {
					payload := make([]rankingJSON, 0, len(lists))
					for _, l := range lists {
						payload = append(payload, rankingJSON{
							Name:      l.Name,
							Slug:      l.Slug,
							CreatedOn: l.CreatedOn,
							Selected:  l.Slug == selected,
						})
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				if len(lists) == 0 {
					fmt.Fprintln(out, "No rankings found")
					return nil
				}
				rows := make([][]string, 0, len(lists))
				for _, l := range lists {
					marker := ""
					if l.Slug == selected {
						marker = "*"
					}
					created := ""
					if !l.CreatedOn.IsZero() {
						created = l.CreatedOn.Local().Format(time.DateOnly)
					}
					rows = append(rows, []string{marker, l.Slug, l.Name, created})
				}
				fmt.Fprintln(out, renderTable(rankingColumns, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the cached ranking list without contacting the backend")
	return cmd
}

func fetchRankings(cmd *cobra.Command, ws *workspace, offline bool) ([]ranking.List, error) {
	if !offline {
		lists, err := ws.engine.Rankings(cmd.Context())
		if err == nil || !errors.Is(err, services.ErrNetwork) {
			return lists, err
		}
		cached, cacheErr := ws.snapshots.Rankings(cmd.Context())
		if cacheErr != nil || len(cached) == 0 {
			return nil, err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: backend unreachable, showing cached rankings")
		return cached, nil
	}
	return ws.snapshots.Rankings(cmd.Context())
}

func newRankingsCreateCommand(ctx *commandContext) *cobra.Command {
	var slug string
	var use bool

	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a new ranking",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditLock(func() error {
				return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
					created, err := ws.engine.CreateRanking(cmd.Context(), args[0], slug)
					if err != nil {
						return err
					}
					if use {
						if err := ws.engine.SelectRanking(cmd.Context(), created.Slug); err != nil {
							return err
						}
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, rankingJSON{
							Name:      created.Name,
							Slug:      created.Slug,
							CreatedOn: created.CreatedOn,
							Selected:  ws.session.Ranking() == created.Slug,
						})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Created ranking %q (%s)\n", created.Name, created.Slug)
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVar(&slug, "slug", "", "Slug for the ranking (derived from the name when omitted)")
	cmd.Flags().BoolVar(&use, "use", false, "Select the new ranking")
	return cmd
}

func newRankingsUseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "use <slug>",
		Short: "Select the ranking other commands work on",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEditLock(func() error {
				return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
					if err := ws.engine.SelectRanking(cmd.Context(), args[0]); err != nil {
						return err
					}
					if ctx.jsonOutput() {
						return writeJSON(cmd, map[string]any{
							"ranking": ws.engine.Ranking(),
							"entries": len(ws.engine.Entries()),
						})
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Selected ranking %s (%d entries)\n", ws.engine.Ranking(), len(ws.engine.Entries()))
					return nil
				})
			})
		},
	}
}
