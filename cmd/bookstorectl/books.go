package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"bookstore/internal/catalog"
	"bookstore/internal/exporter"
	"bookstore/internal/guard"
	"bookstore/internal/importer"
	"bookstore/internal/session"
)

var errNotSignedIn = errors.New("not signed in; run bookstorectl login first")

func newBooksCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "books",
		Short: "exports and imports the book catalog as CSV",
	}
	cmd.AddCommand(newBooksExportCmd(opts))
	cmd.AddCommand(newBooksImportCmd(opts))
	return cmd
}

func newBooksExportCmd(opts *rootOptions) *cobra.Command {
	var sort, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "writes every book as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, client, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := requireAccess(guard.Authenticated(), m); err != nil {
				return err
			}

			books, err := client.Books(cmd.Context(), catalog.NormalizeSort(sort, catalog.BookSorts, catalog.DefaultBookSort))
			if err != nil {
				return err
			}

			var w io.Writer = opts.out
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}

			return exporter.NewCSVExporter().Export(w, books)
		},
	}

	cmd.Flags().StringVar(&sort, "sort", catalog.DefaultBookSort, "book order (title_asc, title_desc, date_asc, date_desc)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "output file, - for stdout")
	return cmd
}

func newBooksImportCmd(opts *rootOptions) *cobra.Command {
	var editorRole string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "creates books from a CSV file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, client, err := opts.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close()

			if err := requireAccess(guard.RequireRole(editorRole), m); err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			summary, err := importer.NewCSVImporter(client).Import(cmd.Context(), f)
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(opts.out)
				enc.SetIndent("", "  ")
				return enc.Encode(summary)
			}

			fmt.Fprintf(opts.out, "imported %d of %d rows\n", summary.Imported, summary.TotalRows)
			for _, skipped := range summary.SkippedDuplicates {
				fmt.Fprintf(opts.out, "row %d skipped: %s (%s)\n", skipped.Row, skipped.Reason, skipped.ISBN)
			}
			for _, failed := range summary.Failed {
				fmt.Fprintf(opts.out, "row %d failed: %s\n", failed.Row, failed.Error)
			}
			if summary.TruncatedRecords {
				fmt.Fprintln(opts.out, "more rows were skipped or failed than are listed")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&editorRole, "editor-role", "Urednik", "role required to create books")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the import summary as JSON")
	return cmd
}

// requireAccess runs g against the session the same way the web guard does.
func requireAccess(g guard.Guard, m *session.Manager) error {
	switch g.Check(m) {
	case guard.RedirectLogin:
		return errNotSignedIn
	case guard.RedirectForbidden:
		return fmt.Errorf("account lacks the %s role", g.Role())
	default:
		return nil
	}
}
