package main

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"songrank/internal/engine"
	"songrank/internal/ranking"
	"songrank/internal/services"
)

// revertedNote follows a reorder the backend accepted but could not be
// fetched back.
const revertedNote = "; refresh failed, showing the last fetched order"

var errNothingToChange = fmt.Errorf("%w: nothing to change, pass at least one field flag", services.ErrValidation)

func newEntryCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newAddCommand(ctx),
		newEditCommand(ctx),
		newDeleteCommand(ctx),
		newMoveCommand(ctx),
		newRankCommand(ctx),
	}
}

// entryFields holds the optional per-entry flags shared by add and edit.
type entryFields struct {
	ref        string
	title      string
	artist     string
	album      string
	released   int
	discovered string
	comment    string
}

func (f *entryFields) register(cmd *cobra.Command, withRef bool) {
	if withRef {
		cmd.Flags().StringVar(&f.ref, "ref", "", "YouTube URL or video id")
		cmd.Flags().StringVar(&f.title, "title", "", "Song title")
	}
	cmd.Flags().StringVar(&f.artist, "artist", "", "Artist")
	cmd.Flags().StringVar(&f.album, "album", "", "Album")
	cmd.Flags().IntVar(&f.released, "released", 0, "Release year")
	cmd.Flags().StringVar(&f.discovered, "discovered", "", "When or where the song was discovered")
	cmd.Flags().StringVar(&f.comment, "comment", "", "Free-form comment")
}

func (f *entryFields) draft(cmd *cobra.Command, ref, title string) ranking.Draft {
	draft := ranking.Draft{
		VideoID:    ref,
		Title:      title,
		Artist:     ranking.String(f.artist),
		Album:      ranking.String(f.album),
		Discovered: ranking.String(f.discovered),
		Comment:    ranking.String(f.comment),
	}
	if cmd.Flags().Changed("released") {
		draft.Released = ranking.Int(f.released)
	}
	return draft
}

// patch builds a partial update from the flags that were given. An explicit
// empty string clears an optional field.
func (f *entryFields) patch(cmd *cobra.Command) ranking.Patch {
	var p ranking.Patch
	flags := cmd.Flags()
	if flags.Changed("ref") {
		p.VideoID = &f.ref
	}
	if flags.Changed("title") {
		title := strings.TrimSpace(f.title)
		p.Title = &title
	}
	if flags.Changed("artist") {
		p.Artist = &f.artist
	}
	if flags.Changed("album") {
		p.Album = &f.album
	}
	if flags.Changed("released") {
		p.Released = ranking.Int(f.released)
	}
	if flags.Changed("discovered") {
		p.Discovered = &f.discovered
	}
	if flags.Changed("comment") {
		p.Comment = &f.comment
	}
	return p
}

// mutate runs fn against the freshly loaded selected ranking while holding
// the edit lock, then prints the resulting list. A change the backend
// accepted but could not confirm still prints the list, marked stale.
func (c *commandContext) mutate(cmd *cobra.Command, fn func(*workspace) (string, error)) error {
	return c.withEditLock(func() error {
		return c.withWorkspace(cmd, true, func(ws *workspace) error {
			message, err := fn(ws)
			if err != nil && !errors.Is(err, engine.ErrStale) {
				return err
			}
			if message != "" && !c.jsonOutput() {
				fmt.Fprintln(cmd.OutOrStdout(), message)
			}
			snap := ws.engine.Snapshot()
			if printErr := c.printListing(cmd, listing{
				slug:    snap.Ranking,
				entries: snap.Entries,
				stale:   snap.Stale,
			}); printErr != nil {
				return printErr
			}
			return err
		})
	})
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	var fields entryFields

	cmd := &cobra.Command{
		Use:   "add <youtube-ref> <title>",
		Short: "Append a song to the selected ranking",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := fields.draft(cmd, args[0], args[1])
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				created, err := ws.engine.Add(cmd.Context(), draft)
				if created.ID == 0 {
					return "", err
				}
				return fmt.Sprintf("Added %s at rank %d", created.Label(), created.Rank), err
			})
		},
	}
	fields.register(cmd, false)
	return cmd
}

func newEditCommand(ctx *commandContext) *cobra.Command {
	var fields entryFields

	cmd := &cobra.Command{
		Use:   "edit <rank|query>",
		Short: "Change the details of an entry",
		Long: "Change the details of an entry picked by rank number or fuzzy search.\n" +
			"Only the given flags are sent; an empty value clears an optional field.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			patch := fields.patch(cmd)
			if patch.Empty() {
				return errNothingToChange
			}
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				entries := ws.engine.Entries()
				index, err := resolveEntry(entries, args[0])
				if err != nil {
					return "", err
				}
				target := entries[index]
				if err := ws.engine.Update(cmd.Context(), target.ID, patch); err != nil {
					return "", err
				}
				return fmt.Sprintf("Updated %s", patch.Apply(target).Label()), nil
			})
		},
	}
	fields.register(cmd, true)
	return cmd
}

func newDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "delete <rank|query>",
		Aliases: []string{"rm"},
		Short:   "Remove an entry; lower entries move up",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				entries := ws.engine.Entries()
				index, err := resolveEntry(entries, args[0])
				if err != nil {
					return "", err
				}
				target := entries[index]
				if err := ws.engine.Delete(cmd.Context(), target.ID); err != nil {
					return "", err
				}
				return fmt.Sprintf("Deleted %s", target.Label()), nil
			})
		},
	}
}

func newMoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:     "move <rank|query> <new-rank>",
		Aliases: []string{"mv"},
		Short:   "Move an entry to a new rank",
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := strconv.Atoi(strings.TrimSpace(args[1]))
			if err != nil {
				return fmt.Errorf("%w: %q is not a rank number", services.ErrValidation, args[1])
			}
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				entries := ws.engine.Entries()
				from, err := resolveEntry(entries, args[0])
				if err != nil {
					return "", err
				}
				if from == to-1 {
					return fmt.Sprintf("%s is already at rank %d", entries[from].Label(), to), nil
				}
				err = ws.engine.Move(cmd.Context(), from, to-1)
				if err != nil && !errors.Is(err, engine.ErrStale) {
					return "", err
				}
				message := fmt.Sprintf("Moved %s from rank %d to %d", entries[from].Label(), from+1, to)
				if err != nil {
					message += revertedNote
				}
				return message, err
			})
		},
	}
}

func newRankCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rank <rank|query> <typed-rank>",
		Short: "Type a new rank for an entry",
		Long: "Type a new rank for an entry. The value must be a whole number between 1\n" +
			"and the list length; the current rank changes nothing.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.mutate(cmd, func(ws *workspace) (string, error) {
				entries := ws.engine.Entries()
				index, err := resolveEntry(entries, args[0])
				if err != nil {
					return "", err
				}
				edit, err := ws.engine.BeginRankEdit(index)
				if err != nil {
					return "", err
				}
				edit.Input(args[1])
				err = edit.Confirm(cmd.Context())
				if err != nil && !errors.Is(err, engine.ErrStale) {
					edit.Cancel()
					return "", err
				}
				if err != nil {
					return fmt.Sprintf("Ranked %s%s", entries[index].Label(), revertedNote), err
				}
				key := entries[index].Key()
				position := slices.IndexFunc(ws.engine.Entries(), func(e ranking.Entry) bool { return e.Key() == key })
				return fmt.Sprintf("%s is now at rank %d", entries[index].Label(), position+1), nil
			})
		},
	}
}
