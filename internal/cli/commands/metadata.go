package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/conduit-lang/entitymeta/internal/cli/ui"
	"github.com/conduit-lang/entitymeta/internal/orm/schema"
)

// NewFetchCommand creates the fetch command
func NewFetchCommand(flags *globalFlags) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "fetch [service]",
		Short: "Fetch metadata for a data service and summarize it",
		Long: `Fetch the metadata document of a data service through the configured
source and cache, import it into a metadata store and print a summary.

Examples:
  entitymeta fetch breeze/Northwind
  entitymeta fetch breeze/Northwind -o northwind.yaml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			store, name, err := e.fetch(cmd.Context(), serviceArg(args))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			kv := ui.NewKeyValueTable(out, color.NoColor)
			kv.AddRow("Service", name)
			kv.AddRow("Naming convention", store.NamingConvention().Name)
			kv.AddRow("Entity types", strconv.Itoa(len(store.EntityTypes())))
			kv.AddRow("Complex types", strconv.Itoa(len(store.ComplexTypes())))
			kv.Render()

			if output != "" {
				if err := writeDocumentFile(store, output); err != nil {
					return err
				}
				ui.WriteSuccess(out, fmt.Sprintf("wrote %s", output), color.NoColor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Also write the imported metadata to this file (.json, .yaml or .yml)")
	return cmd
}

// NewExportCommand creates the export command
func NewExportCommand(flags *globalFlags) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export [service]",
		Short: "Print the metadata document a store exports for a service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			store, _, err := e.fetch(cmd.Context(), serviceArg(args))
			if err != nil {
				return err
			}
			return writeDocument(cmd.OutOrStdout(), store, format)
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json or yaml)")
	return cmd
}

// NewTypesCommand creates the types command
func NewTypesCommand(flags *globalFlags) *cobra.Command {
	var typeName string

	cmd := &cobra.Command{
		Use:   "types [service]",
		Short: "List the structural types of a service, or the properties of one type",
		Long: `List the entity and complex types of a data service. With --type, list
the properties of that type including inherited ones.

Examples:
  entitymeta types breeze/Northwind
  entitymeta types breeze/Northwind --type Order`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			store, _, err := e.fetch(cmd.Context(), serviceArg(args))
			if err != nil {
				return err
			}

			if typeName == "" {
				renderTypes(cmd.OutOrStdout(), store.StructuralTypes())
				return nil
			}

			st, err := lookupType(store, typeName)
			if err != nil {
				return err
			}
			ui.Header(cmd.OutOrStdout(), st.QualifiedName(), color.NoColor)
			renderProperties(cmd.OutOrStdout(), st)
			return nil
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Show the properties of this type")
	return cmd
}

// NewValidateCommand creates the validate command
func NewValidateCommand(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>...",
		Short: "Check that metadata documents import cleanly",
		Long: `Import one or more metadata documents into a single empty store, the way
a client would. Later files may extend types declared by earlier ones.
Nothing is written.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			store, err := e.newStore()
			if err != nil {
				return err
			}
			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", path, err)
				}
				if err := store.ImportMetadataJSON(data, true); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}

			ui.WriteSuccess(cmd.OutOrStdout(), fmt.Sprintf("%d document(s) valid: %d entity types, %d complex types",
				len(args), len(store.EntityTypes()), len(store.ComplexTypes())), color.NoColor)
			return nil
		},
	}
}

func lookupType(store *schema.MetadataStore, name string) (*schema.StructuralType, error) {
	st, err := store.GetEntityType(name)
	if err == nil {
		return st, nil
	}

	var known []string
	for _, t := range store.StructuralTypes() {
		known = append(known, t.QualifiedName())
	}
	return nil, &lookupError{err: err, known: known}
}

func renderTypes(w io.Writer, types []*schema.StructuralType) {
	table := ui.NewTable(w, []string{"Name", "Kind", "Base", "Key", "Properties"}, &ui.TableOptions{NoColor: color.NoColor})
	for _, t := range types {
		kind := "entity"
		switch {
		case t.IsComplexType():
			kind = "complex"
		case t.IsAbstract():
			kind = "abstract"
		}

		var keys []string
		for _, p := range t.KeyProperties() {
			keys = append(keys, p.Name())
		}
		key := strings.Join(keys, ",")
		if t.IsEntityType() && t.AutoGeneratedKeyType() != schema.KeyNone {
			key += " (" + t.AutoGeneratedKeyType().String() + ")"
		}

		table.AddRow(t.QualifiedName(), kind, t.BaseTypeName(), key, strconv.Itoa(len(t.Properties())))
	}
	table.Render()
}

func renderProperties(w io.Writer, t *schema.StructuralType) {
	table := ui.NewTable(w, []string{"Name", "Server name", "Kind", "Type", "Key", "Nullable", "Declared by"},
		&ui.TableOptions{NoColor: color.NoColor})
	for _, p := range t.Properties() {
		typ := p.DataType().String()
		switch {
		case p.IsNavigationProperty():
			typ = p.EntityTypeName()
		case p.IsComplexProperty():
			typ = p.ComplexTypeName()
		}
		if !p.IsScalar() {
			typ += "[]"
		}

		declaredBy := ""
		if p.ParentType() != nil {
			declaredBy = p.ParentType().ShortName()
		}
		table.AddRow(p.Name(), p.NameOnServer(), p.Kind().String(), typ,
			yesNo(p.IsPartOfKey()), yesNo(p.IsNullable()), declaredBy)
	}
	table.Render()
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func writeDocument(w io.Writer, store *schema.MetadataStore, format string) error {
	var data []byte
	var err error
	switch strings.ToLower(format) {
	case "json":
		data, err = store.ExportMetadata().JSON()
	case "yaml", "yml":
		data, err = store.ExportMetadataYAML()
	default:
		return fmt.Errorf("unknown format %q (want json or yaml)", format)
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return err
	}
	if len(data) > 0 && data[len(data)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

func writeDocumentFile(store *schema.MetadataStore, path string) error {
	format := strings.TrimPrefix(filepath.Ext(path), ".")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := writeDocument(f, store, format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
