package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/ytget/progress-dashboard/internal/model"
)

// Export formats
const (
	FormatYAML = "yaml"
	FormatJSON = "json"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newListCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List widgets in dashboard order",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			renderWidgets(cmd.OutOrStdout(), s.store.Widgets(), s.store.Sizes())
			return nil
		}),
	}
}

func renderWidgets(w io.Writer, widgets []model.Widget, sizes map[int64]model.Size) {
	rows := make([][]string, 0, len(widgets))
	for i, widget := range widgets {
		p := widget.Project
		size := "-"
		if sz, ok := sizes[p.ID]; ok {
			size = formatSize(sz)
		}
		rows = append(rows, []string{
			strconv.Itoa(i + 1),
			strconv.FormatInt(p.ID, 10),
			p.Name,
			fmt.Sprintf("%d/%d", p.TasksCompleted, p.TasksTotal),
			fmt.Sprintf("%.0f%%", p.CompletionPercent()),
			p.StartDate,
			p.EndDate,
			size,
		})
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "ID", "NAME", "TASKS", "DONE", "START", "END", "SIZE").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	fmt.Fprintln(w, t.String())
}

func formatSize(size model.Size) string {
	return strconv.FormatFloat(size.Width, 'f', -1, 64) + "x" + strconv.FormatFloat(size.Height, 'f', -1, 64)
}

func newAddCmd(s *session) *cobra.Command {
	var input model.ProjectInput

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a project widget",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			input.Name = strings.TrimSpace(input.Name)
			if !s.store.CheckNameAvailability(input.Name) {
				return fmt.Errorf("%w: project %q already exists", model.ErrInvalidProject, input.Name)
			}

			project, err := input.Project(model.UniqueProjectID(s.store.HasProject))
			if err != nil {
				return err
			}
			if err := s.store.AddWidget(project); err != nil {
				return err
			}

			s.logger.Info("project added", zap.Int64("project_id", project.ID), zap.String("name", project.Name))
			fmt.Fprintln(cmd.OutOrStdout(), project.ID)
			return nil
		}),
	}

	flags := cmd.Flags()
	flags.StringVar(&input.Name, "name", "", "project name")
	flags.IntVar(&input.TasksTotal, "total", 0, "total number of tasks")
	flags.IntVar(&input.TasksCompleted, "completed", 0, "number of completed tasks")
	flags.StringVar(&input.StartDate, "start", "", "start date (yyyy-mm-dd)")
	flags.StringVar(&input.EndDate, "end", "", "end date (yyyy-mm-dd)")
	return cmd
}

func newRemoveCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove the widget of a project",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if !s.store.HasProject(id) {
				s.logger.Warn("no widget for project", zap.Int64("project_id", id))
			}
			return s.store.RemoveWidget(id)
		}),
	}
}

func newReorderCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "reorder <id>...",
		Short: "Put widgets in the given order; every project id must appear once",
		Args:  cobra.MinimumNArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, len(args))
			for i, arg := range args {
				id, err := parseID(arg)
				if err != nil {
					return err
				}
				ids[i] = id
			}

			ordered, err := permute(s.store.Widgets(), ids)
			if err != nil {
				return err
			}
			return s.store.ReorderWidgets(ordered)
		}),
	}
}

// permute returns widgets arranged in the order of ids. ids must name every
// widget exactly once.
func permute(widgets []model.Widget, ids []int64) ([]model.Widget, error) {
	if len(ids) != len(widgets) {
		return nil, fmt.Errorf("expected %d ids, got %d", len(widgets), len(ids))
	}

	byID := make(map[int64]model.Widget, len(widgets))
	for _, w := range widgets {
		byID[w.Project.ID] = w
	}

	out := make([]model.Widget, 0, len(ids))
	for _, id := range ids {
		w, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("project %d is unknown or listed twice", id)
		}
		delete(byID, id)
		out = append(out, w)
	}
	return out, nil
}

func newResizeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <id> <width> <height>",
		Short: "Record the size of a widget",
		Args:  cobra.ExactArgs(3),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			width, err := strconv.ParseFloat(args[1], 64)
			if err != nil || width <= 0 {
				return fmt.Errorf("invalid width %q", args[1])
			}
			height, err := strconv.ParseFloat(args[2], 64)
			if err != nil || height <= 0 {
				return fmt.Errorf("invalid height %q", args[2])
			}
			return s.store.UpdateWidgetSize(id, width, height)
		}),
	}
}

func newSizeCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "size <id>",
		Short: "Print the recorded size of a widget",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			size, ok := s.store.WidgetSize(id)
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no size recorded")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatSize(size))
			return nil
		}),
	}
}

func newCheckNameCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "check-name <name>",
		Short: "Report whether a project name is free",
		Args:  cobra.ExactArgs(1),
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			if s.store.CheckNameAvailability(args[0]) {
				fmt.Fprintln(cmd.OutOrStdout(), "available")
			} else {
				fmt.Fprintln(cmd.OutOrStdout(), "taken")
			}
			return nil
		}),
	}
}

// dashboardExport is the document written by the export command
type dashboardExport struct {
	Widgets []model.Widget       `json:"widgets" yaml:"widgets"`
	Sizes   map[int64]model.Size `json:"sizes" yaml:"sizes"`
}

func newExportCmd(s *session) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write widgets and sizes as YAML or JSON",
		Args:  cobra.NoArgs,
		RunE: s.run(func(cmd *cobra.Command, args []string) error {
			doc := dashboardExport{Widgets: s.store.Widgets(), Sizes: s.store.Sizes()}
			return writeExport(cmd.OutOrStdout(), format, doc)
		}),
	}
	cmd.Flags().StringVarP(&format, "format", "f", FormatYAML, "output format: yaml or json")
	return cmd
}

func writeExport(w io.Writer, format string, doc dashboardExport) error {
	switch strings.ToLower(format) {
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode yaml: %w", err)
		}
		return enc.Close()
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(doc); err != nil {
			return fmt.Errorf("failed to encode json: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want %s or %s)", format, FormatYAML, FormatJSON)
	}
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid project id %q", arg)
	}
	return id, nil
}
