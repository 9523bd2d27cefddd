package commands

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conduit-lang/entitymeta/internal/orm/entity"
)

// NewSampleCommand creates the sample command
func NewSampleCommand(flags *globalFlags) *cobra.Command {
	var (
		typeName string
		count    int
		sets     []string
	)

	cmd := &cobra.Command{
		Use:   "sample [service]",
		Short: "Create new entities of a type and print them as an export bundle",
		Long: `Create entities of an entity type in the Added state, with default values,
temporary keys and any --set values, and print the export bundle an entity
manager produces for them. Values are parsed as JSON when possible.

Examples:
  entitymeta sample breeze/Northwind --type Order
  entitymeta sample breeze/Northwind -t Order -n 2 --set shipName=Alfreds --set freight=12.5`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if typeName == "" {
				return fmt.Errorf("--type is required")
			}
			if count < 1 {
				return fmt.Errorf("--count must be at least 1")
			}
			values, err := parseAssignments(sets)
			if err != nil {
				return err
			}

			e, err := loadEnv(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer e.Close()

			store, name, err := e.fetch(cmd.Context(), serviceArg(args))
			if err != nil {
				return err
			}
			st, err := lookupType(store, typeName)
			if err != nil {
				return err
			}

			manager := entity.NewManager(
				entity.WithMetadataStore(store),
				entity.WithServiceName(name),
				entity.WithLogger(e.logger),
			)
			for i := 0; i < count; i++ {
				if _, err := manager.CreateEntity(st.QualifiedName(), values, entity.Added); err != nil {
					return err
				}
			}

			data, err := manager.ExportEntities(st.QualifiedName())
			if err != nil {
				return err
			}
			var out bytes.Buffer
			if err := json.Indent(&out, data, "", "  "); err != nil {
				return err
			}
			out.WriteByte('\n')
			_, err = out.WriteTo(cmd.OutOrStdout())
			return err
		},
	}

	cmd.Flags().StringVarP(&typeName, "type", "t", "", "Entity type to create")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of entities")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Property value as name=value (repeatable)")
	return cmd
}

// parseAssignments turns name=value pairs into property values. Values that
// decode as JSON keep their JSON type; anything else is a string.
func parseAssignments(sets []string) (map[string]any, error) {
	values := make(map[string]any, len(sets))
	for _, s := range sets {
		name, raw, ok := strings.Cut(s, "=")
		if !ok || strings.TrimSpace(name) == "" {
			return nil, fmt.Errorf("invalid --set %q (want name=value)", s)
		}

		dec := json.NewDecoder(strings.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil || dec.More() {
			v = raw
		}
		values[strings.TrimSpace(name)] = v
	}
	return values, nil
}
