// ABOUTME: Prospect CLI commands
// ABOUTME: Human-friendly commands that drive the same list session and workflows as the TUI
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/pflag"

	"github.com/harperreed/prospekt/listview"
	"github.com/harperreed/prospekt/models"
	"github.com/harperreed/prospekt/store"
)

// IO carries the streams a command reads answers from and prints to.
type IO struct {
	In  io.Reader
	Out io.Writer
}

func newFlagSet(name string, out io.Writer) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(out)
	return fs
}

// ListCommand prints the live prospects.
func ListCommand(ctx context.Context, sess *listview.Session, out io.Writer, args []string) error {
	fs := newFlagSet("list", out)
	search := fs.StringP("search", "s", "", "Match company, contact person, or status")
	company := fs.String("company", "", "Filter by company")
	contact := fs.String("contact", "", "Filter by contact person")
	status := fs.String("status", "", "Filter by status")
	sortBy := fs.String("sort", "", "Sort by field (company, contactPerson, firstContactDate, status, ...)")
	desc := fs.Bool("desc", false, "Sort descending")
	asJSON := fs.Bool("json", false, "Print JSON instead of a table")
	if err := fs.Parse(args); err != nil {
		return err
	}

	sort := listview.SortSpec{Key: *sortBy}
	if *desc {
		sort.Direction = listview.Descending
	}
	rows := sess.Query(sort, *search, listview.Filter{
		Company:       *company,
		ContactPerson: *contact,
		Status:        *status,
	})

	if *asJSON {
		docs := make([]map[string]any, 0, len(rows))
		for _, p := range rows {
			doc := p.ToMap()
			doc["id"] = p.ID
			docs = append(docs, doc)
		}
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(rows) == 0 {
		_, _ = fmt.Fprintln(out, "No prospects found")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COMPANY\tCONTACT\tPHONE\tEMAIL\tFIRST CONTACT\tSTATUS\tID")
	_, _ = fmt.Fprintln(w, "-------\t-------\t-----\t-----\t-------------\t------\t--")
	for _, p := range rows {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			dash(p.Company), dash(p.ContactPerson), dash(p.Phone), dash(p.Email),
			dash(p.DisplayDate()), dash(p.Status), p.ID)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(out, "\nTotal: %d prospect(s)\n", len(rows))
	return nil
}

// AddCommand creates a prospect. No field is required.
func AddCommand(ctx context.Context, sess *listview.Session, out io.Writer, args []string) error {
	fs := newFlagSet("add", out)
	company := fs.String("company", "", "Company name")
	contact := fs.String("contact", "", "Contact person")
	phone := fs.String("phone", "", "Phone number")
	email := fs.String("email", "", "Email address")
	date := fs.String("date", "", "First contact date (YYYY-MM-DD)")
	comment := fs.String("comment", "", "Comment")
	status := fs.String("status", "", "Status label")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := sess.Create(ctx, models.Fields{
		models.FieldCompany:          *company,
		models.FieldContactPerson:    *contact,
		models.FieldPhone:            *phone,
		models.FieldEmail:            *email,
		models.FieldFirstContactDate: *date,
		models.FieldComment:          *comment,
		models.FieldStatus:           *status,
	})
	if err != nil {
		return fmt.Errorf("failed to create prospect: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Prospect created: %s (ID: %s)\n", dash(*company), id)
	if *contact != "" {
		_, _ = fmt.Fprintf(out, "  Contact: %s\n", *contact)
	}
	if *status != "" {
		_, _ = fmt.Fprintf(out, "  Status: %s\n", *status)
	}
	return nil
}

// ShowCommand prints one prospect, read from the store rather than the snapshot.
func ShowCommand(ctx context.Context, sess *listview.Session, out io.Writer, args []string) error {
	fs := newFlagSet("show", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: show <id>")
	}
	id := fs.Arg(0)

	list := sess.List()
	p, err := list.Store().Get(ctx, list.Collection(), id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("prospect %s not found", id)
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "Company:\t%s\n", dash(p.Company))
	_, _ = fmt.Fprintf(w, "Contact:\t%s\n", dash(p.ContactPerson))
	_, _ = fmt.Fprintf(w, "Phone:\t%s\n", dash(p.Phone))
	_, _ = fmt.Fprintf(w, "Email:\t%s\n", dash(p.Email))
	_, _ = fmt.Fprintf(w, "First contact:\t%s\n", dash(p.DisplayDate()))
	_, _ = fmt.Fprintf(w, "Status:\t%s\n", dash(p.Status))
	_, _ = fmt.Fprintf(w, "Comment:\t%s\n", dash(p.Comment))
	if p.Archived {
		_, _ = fmt.Fprintln(w, "Archived:\tyes")
	}
	_, _ = fmt.Fprintf(w, "ID:\t%s\n", p.ID)
	return w.Flush()
}

// StatusCommand sets the status of one prospect.
func StatusCommand(ctx context.Context, sess *listview.Session, out io.Writer, args []string) error {
	fs := newFlagSet("status", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: status <id> <label>")
	}
	id, label := fs.Arg(0), strings.TrimSpace(fs.Arg(1))
	if label == "" {
		return fmt.Errorf("status label must not be empty")
	}

	if err := sess.OpenStatusSelector(id, listview.Anchor{}); err != nil {
		return describe(id, err)
	}
	defer sess.CloseStatusSelector()
	if err := sess.SelectStatus(ctx, label); err != nil {
		return fmt.Errorf("failed to set status: %w", err)
	}

	_, _ = fmt.Fprintf(out, "✓ Status of %s set to %s\n", id, label)
	return nil
}

// ArchiveCommand hides a prospect from the list after confirmation.
func ArchiveCommand(ctx context.Context, sess *listview.Session, stdio IO, args []string) error {
	return confirmed(ctx, sess, stdio, "archive", args,
		sess.RequestArchive, sess.ArchiveState, sess.ConfirmArchive, sess.CancelArchive)
}

// DeleteCommand permanently removes a prospect after confirmation.
func DeleteCommand(ctx context.Context, sess *listview.Session, stdio IO, args []string) error {
	return confirmed(ctx, sess, stdio, "delete", args,
		sess.RequestDelete, sess.DeleteState, sess.ConfirmDelete, sess.CancelDelete)
}

func confirmed(
	ctx context.Context,
	sess *listview.Session,
	stdio IO,
	op string,
	args []string,
	request func(string) error,
	state func() listview.Confirmation,
	confirm func(context.Context) error,
	cancel func(),
) error {
	fs := newFlagSet(op, stdio.Out)
	yes := fs.BoolP("yes", "y", false, "Skip the confirmation prompt")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("usage: %s <id> [--yes]", op)
	}
	id := fs.Arg(0)

	if err := request(id); err != nil {
		return describe(id, err)
	}
	defer cancel()

	target := state().Target
	if !*yes {
		question := fmt.Sprintf("%s %s (%s)?", strings.ToUpper(op[:1])+op[1:], dash(target.Company), dash(target.ContactPerson))
		if err := Confirm(stdio.In, stdio.Out, question); err != nil {
			if errors.Is(err, ErrNotConfirmed) {
				_, _ = fmt.Fprintln(stdio.Out, "Cancelled")
				return nil
			}
			return err
		}
	}

	if err := confirm(ctx); err != nil {
		return fmt.Errorf("failed to %s prospect: %w", op, err)
	}
	_, _ = fmt.Fprintf(stdio.Out, "✓ Prospect %sd: %s\n", op, id)
	return nil
}

// StatusesCommand prints the status catalog.
func StatusesCommand(sess *listview.Session, out io.Writer, args []string) error {
	fs := newFlagSet("statuses", out)
	if err := fs.Parse(args); err != nil {
		return err
	}
	for _, label := range sess.Catalog().Labels() {
		_, _ = fmt.Fprintln(out, label)
	}
	return nil
}

func describe(id string, err error) error {
	if errors.Is(err, listview.ErrNotFound) {
		return fmt.Errorf("prospect %s not found", id)
	}
	return err
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
