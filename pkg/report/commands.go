package report

import (
	"fmt"

	"github.com/samber/lo"
	"github.com/snowusage/snowusage/pkg/depgraph"
)

const DefaultRetentionDays = 21

// DropCommands renders one drop statement per name, dropping views as views.
func DropCommands(names []string, views []depgraph.ViewDefinition) []string {
	isView := lo.SliceToMap(views, func(v depgraph.ViewDefinition) (string, struct{}) {
		return v.Name, struct{}{}
	})

	commands := make([]string, 0, len(names))
	for _, name := range names {
		kind := "table"
		if _, ok := isView[name]; ok {
			kind = "view"
		}
		commands = append(commands, fmt.Sprintf("drop %s %s;", kind, name))
	}

	return commands
}

// RetentionCommands renders the time travel retention change for each table. A
// non-positive days falls back to DefaultRetentionDays.
func RetentionCommands(tables []string, days int) []string {
	if days <= 0 {
		days = DefaultRetentionDays
	}

	return lo.Map(tables, func(table string, _ int) string {
		return fmt.Sprintf("alter table %s set data_retention_time_in_days=%d;", table, days)
	})
}

// ViewDefinition returns the DDL text of the named view.
func ViewDefinition(views []depgraph.ViewDefinition, name string) (string, bool) {
	v, ok := lo.Find(views, func(v depgraph.ViewDefinition) bool {
		return v.Name == name
	})
	return v.Text, ok
}
