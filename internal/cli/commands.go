package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	settings "github.com/goliatone/go-settings"
	"github.com/goliatone/go-settings/pkg/state"
	"github.com/goliatone/go-settings/schema/openapi"
)

func newGetCommand(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print the current value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			value, err := s.Engine.Get(args[0])
			if err != nil {
				return err
			}
			if asJSON {
				if t, ok := s.Engine.Types().Type(args[0]); ok && t.IsList() {
					items, err := s.Engine.GetList(args[0])
					if err != nil {
						return err
					}
					if items == nil {
						items = []string{}
					}
					return writeJSON(cmd.OutOrStdout(), items)
				}
				return writeJSON(cmd.OutOrStdout(), value)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
			return err
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the value as JSON")
	return cmd
}

func newSetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Validate and persist a new value",
		Long:  "Validate and persist a new value. List values are separated by '|'.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Engine.Set(a.writeContext(cmd.Context()), args[0], args[1]); err != nil {
				return err
			}
			value, _ := s.Engine.Get(args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], formatValue(value))
			return err
		},
	}
}

func newResetCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset NAME",
		Short: "Remove the override of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if err := s.Engine.ResetToDefault(a.writeContext(cmd.Context()), args[0]); err != nil {
				return err
			}
			value, _ := s.Engine.Get(args[0])
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], formatValue(value))
			return err
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var (
		category   string
		hidden     bool
		overridden bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List settings with their type and current value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			var infos []settings.SettingInfo
			if category != "" {
				infos = s.Engine.AllSettingsForCategory(category)
			} else {
				infos = s.Engine.AllSettings(hidden)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tCATEGORY\tTYPE\tVALUE")
			for _, info := range infos {
				if overridden && !info.Overridden {
					continue
				}
				name := info.Name
				if info.Overridden {
					name += " *"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", name, info.Category, info.Descriptor.Type, formatValue(info.Value))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&category, "category", "", "only list settings of this category")
	cmd.Flags().BoolVar(&hidden, "hidden", false, "include hidden settings")
	cmd.Flags().BoolVar(&overridden, "overridden", false, "only list overridden settings")
	return cmd
}

func newDescribeCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "describe NAME",
		Short: "Print the definition, type and value of a setting as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			info, err := s.Engine.Describe(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), info)
		},
	}
}

func newTraceCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "trace NAME",
		Short: "Show which layer supplies the value of a setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			trace, err := s.Engine.Trace(args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), trace)
		},
	}
}

func newLocaleCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locale [LOCALE]",
		Short: "Print or change the site locale",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if err := s.Engine.SetSiteLocale(a.writeContext(cmd.Context()), args[0]); err != nil {
					return err
				}
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), s.Engine.SiteLocale())
			return err
		},
	}
}

func newSchemaCommand(a *app) *cobra.Command {
	var (
		format        string
		includeHidden bool
	)
	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print a schema document for the visible settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			var doc settings.SchemaDocument
			switch format {
			case "openapi":
				doc, err = openapi.NewGenerator().Generate(s.Engine.AllSettings(includeHidden))
			case "descriptors":
				doc, err = s.Engine.Schema()
			default:
				return fmt.Errorf("settingsctl: unknown schema format %q", format)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), doc.Document)
		},
	}
	cmd.Flags().StringVar(&format, "format", "descriptors", "schema format: descriptors or openapi")
	cmd.Flags().BoolVar(&includeHidden, "hidden", false, "include hidden settings in the openapi document")
	return cmd
}

func newMigrateCommand(a *app) *cobra.Command {
	var status bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the settings table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			if !status {
				if err := s.Migrate(cmd.Context()); err != nil {
					return err
				}
			}
			version, err := s.MigrationVersion(cmd.Context())
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "migration version %s\n", version)
			return err
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "only print the applied version")
	return cmd
}

func newListenCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Print settings changed by other processes (postgres only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			return s.Listen(cmd.Context(), func(ref state.Ref) {
				value, _ := s.Engine.Get(ref.Name)
				fmt.Fprintf(out, "%s:%s = %s\n", ref.Site, ref.Name, formatValue(value))
			})
		},
	}
}

func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case []string:
		return strings.Join(v, "|")
	}
	return fmt.Sprint(value)
}

func writeJSON(w io.Writer, value any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
