package main

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"songrank/internal/ranking"
	"songrank/internal/services"
	"songrank/internal/ytref"
)

type normalizeJSON struct {
	Input     string `json:"input"`
	VideoID   string `json:"video_id"`
	Canonical bool   `json:"canonical"`
	WatchURL  string `json:"watch_url,omitempty"`
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:         "normalize <youtube-ref>...",
		Short:       "Reduce YouTube links to bare video ids",
		Args:        cobra.MinimumNArgs(1),
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			results := make([]normalizeJSON, 0, len(args))
			for _, arg := range args {
				id := ytref.Normalize(arg)
				result := normalizeJSON{Input: arg, VideoID: id, Canonical: ytref.IsCanonical(id)}
				if result.Canonical {
					result.WatchURL = ytref.WatchURL(id)
				}
				results = append(results, result)
			}

			if ctx.jsonOutput() {
				return writeJSON(cmd, results)
			}
			out := cmd.OutOrStdout()
			for _, r := range results {
				if r.Canonical {
					fmt.Fprintln(out, r.VideoID)
					continue
				}
				fmt.Fprintf(out, "%s\t(not a recognised video id)\n", r.VideoID)
			}
			return nil
		},
	}
}

func newFindCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var limit int

	cmd := &cobra.Command{
		Use:   "find <query>...",
		Short: "Fuzzy search the selected ranking by artist and title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
				l, err := loadListing(cmd, ws, offline)
				if err != nil {
					return err
				}
				matches := ranking.Find(l.entries, strings.Join(args, " "))
				if limit > 0 && len(matches) > limit {
					matches = matches[:limit]
				}

				if ctx.jsonOutput() {
					found := make([]ranking.Entry, 0, len(matches))
					for _, m := range matches {
						found = append(found, m.Entry)
					}
					payload := toEntryJSON(found)
					for i, m := range matches {
						payload[i].Position = m.Index + 1
					}
					return writeJSON(cmd, payload)
				}

				out := cmd.OutOrStdout()
				if len(matches) == 0 {
					fmt.Fprintln(out, "No matches")
					return nil
				}
				rows := make([][]string, 0, len(matches))
				for _, m := range matches {
					rows = append(rows, []string{
						strconv.Itoa(m.Index + 1),
						ranking.Value(m.Entry.Artist),
						m.Entry.Title,
						m.Entry.VideoID,
					})
				}
				fmt.Fprintln(out, renderTable(matchColumns, rows))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Search the cached copy")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of matches (0 for all)")
	return cmd
}

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var offline bool
	var seed uint64

	cmd := &cobra.Command{
		Use:   "play top|random [count]",
		Short: "Build a YouTube playlist link from the selected ranking",
		Long: "Build an anonymous YouTube playlist link. \"top\" takes the highest ranked\n" +
			"entries, \"random\" a random pick kept in rank order.",
		Args:      cobra.RangeArgs(1, 2),
		ValidArgs: []string{"top", "random"},
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := strings.ToLower(args[0])
			if mode != "top" && mode != "random" {
				return fmt.Errorf("%w: unknown mode %q (want top or random)", services.ErrValidation, args[0])
			}
			count := ranking.DefaultPlaylistSize
			if len(args) == 2 {
				n, err := strconv.Atoi(args[1])
				if err != nil || n < 1 {
					return fmt.Errorf("%w: count %q is not a positive number", services.ErrValidation, args[1])
				}
				count = n
			}

			return ctx.withWorkspace(cmd, false, func(ws *workspace) error {
				l, err := loadListing(cmd, ws, offline)
				if err != nil {
					return err
				}
				picked := l.entries
				if mode == "random" {
					if !cmd.Flags().Changed("seed") {
						seed = uint64(time.Now().UnixNano())
					}
					picked = ranking.Shuffle(l.entries, count, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
				}
				link := ranking.PlaylistURL(picked, count)
				if link == "" {
					return fmt.Errorf("%w: ranking %q has no entries with a video id", services.ErrNotFound, l.slug)
				}
				if ctx.jsonOutput() {
					return writeJSON(cmd, map[string]any{"ranking": l.slug, "mode": mode, "url": link})
				}
				fmt.Fprintln(cmd.OutOrStdout(), link)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&offline, "offline", false, "Use the cached copy")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for the random pick")
	return cmd
}
