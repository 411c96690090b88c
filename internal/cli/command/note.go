package command

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/notekeep-go/internal/core/domain"
)

// NoteCommand creates the note command group.
func NoteCommand() *cli.Command {
	return &cli.Command{
		Name:    "note",
		Aliases: []string{"notes"},
		Usage:   "Manage notes",
		Subcommands: []*cli.Command{
			noteListCommand(),
			noteGetCommand(),
			noteCreateCommand(),
			noteUpdateCommand(),
			noteDeleteCommand(),
		},
	}
}

func noteListCommand() *cli.Command {
	return &cli.Command{
		Name:    "list",
		Aliases: []string{"ls"},
		Usage:   "List public notes, or your own with --mine",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "mine", Aliases: []string{"m"}, Usage: "List your own notes"},
		},
		Action: noteListAction,
	}
}

func noteListAction(c *cli.Context) error {
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Loading notes...")
	list := st.API.Notes.ListPublic
	if c.Bool("mine") {
		list = st.API.Notes.ListMine
	}
	page, err := list(ctx)
	stop()
	if err != nil {
		return err
	}
	return render(c, noteListView{Notes: page.Notes, Pagination: page.Pagination})
}

func noteGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Aliases:   []string{"show"},
		Usage:     "Show a note",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "public", Usage: "Read through the public route even when logged in"},
		},
		Action: noteGetAction,
	}
}

func noteGetAction(c *cli.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	get := st.API.Notes.Get
	if c.Bool("public") {
		get = st.API.Notes.GetPublic
	}
	stop := spin(c, "Loading note...")
	n, err := get(ctx, id)
	stop()
	if err != nil {
		return err
	}
	return render(c, noteView{*n})
}

func noteContentFlags(required bool) []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Aliases: []string{"t"}, Usage: "Note title", Required: required},
		&cli.StringFlag{Name: "content", Usage: "Note content"},
		&cli.StringFlag{Name: "content-file", Aliases: []string{"f"}, Usage: "Read the content from a file, - for stdin"},
	}
}

func noteCreateCommand() *cli.Command {
	return &cli.Command{
		Name:   "create",
		Usage:  "Create a note",
		Flags:  noteContentFlags(true),
		Action: noteCreateAction,
	}
}

func noteCreateAction(c *cli.Context) error {
	content, err := readContent(c, c.String("content"), c.String("content-file"))
	if err != nil {
		return err
	}
	in := domain.NoteInput{Title: c.String("title"), Content: content}
	if err := in.Validate(); err != nil {
		return err
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Creating note...")
	n, err := st.API.Notes.Create(ctx, in)
	stop()
	if err != nil {
		return err
	}
	status(c, "Note %s created.", n.ID)
	return render(c, noteView{*n})
}

func noteUpdateCommand() *cli.Command {
	return &cli.Command{
		Name:      "update",
		Aliases:   []string{"edit"},
		Usage:     "Update a note; omitted fields keep their current value",
		ArgsUsage: "<note-id>",
		Flags:     noteContentFlags(false),
		Action:    noteUpdateAction,
	}
}

func noteUpdateAction(c *cli.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	content, err := readContent(c, c.String("content"), c.String("content-file"))
	if err != nil {
		return err
	}
	in := domain.NoteInput{Title: c.String("title"), Content: content}
	if in.Title == "" && in.Content == "" {
		return domain.ErrValidation.WithDetails("nothing to update: give --title, --content or --content-file")
	}

	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Updating note...")
	defer stop()

	if in.Title == "" || in.Content == "" {
		cur, err := st.API.Notes.GetMine(ctx, id)
		if err != nil {
			return err
		}
		if in.Title == "" {
			in.Title = cur.Title
		}
		if in.Content == "" {
			in.Content = cur.Content
		}
	}

	n, err := st.API.Notes.Update(ctx, id, in)
	if err != nil {
		return err
	}
	stop()
	status(c, "Note %s updated.", n.ID)
	return render(c, noteView{*n})
}

func noteDeleteCommand() *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Aliases:   []string{"rm"},
		Usage:     "Delete a note",
		ArgsUsage: "<note-id>",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "force", Aliases: []string{"y"}, Usage: "Skip confirmation"},
		},
		Action: noteDeleteAction,
	}
}

func noteDeleteAction(c *cli.Context) error {
	id, err := noteID(c)
	if err != nil {
		return err
	}
	st, err := EnsureConnected(c)
	if err != nil {
		return err
	}
	if err := st.API.Auth.Session().RequireAuthenticated(); err != nil {
		return err
	}

	if !c.Bool("force") {
		ok, err := confirm(c, fmt.Sprintf("Delete note %s?", id))
		if err != nil {
			return err
		}
		if !ok {
			status(c, "Cancelled.")
			return nil
		}
	}

	ctx, cancel := commandContext(c)
	defer cancel()

	stop := spin(c, "Deleting note...")
	err = st.API.Notes.Delete(ctx, id)
	stop()
	if err != nil {
		return err
	}
	status(c, "Note %s deleted.", id)
	return nil
}

func noteID(c *cli.Context) (string, error) {
	if c.NArg() != 1 || c.Args().First() == "" {
		return "", domain.ErrMissingArgument.WithDetails("expected exactly one note id")
	}
	return c.Args().First(), nil
}
