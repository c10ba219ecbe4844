package usage

import (
	"fmt"
	"strings"

	"github.com/snowusage/snowusage/pkg/palette"
)

// Category groups the raw Snowflake query types that count as one kind of usage.
type Category struct {
	Name     string   `yaml:"name" validate:"required"`
	Subtypes []string `yaml:"subtypes" validate:"required,min=1"`
}

// Taxonomy is ordered; reports list categories in this order.
type Taxonomy []Category

// DefaultTaxonomy covers the query types that register real usage of a table.
func DefaultTaxonomy() Taxonomy {
	return Taxonomy{
		{
			Name: "insert",
			Subtypes: []string{
				"INSERT", "UPDATE", "UNKNOWN", "DELETE", "COPY", "MERGE", "SET",
				"UNLOAD", "BEGIN_TRANSACTION", "TRUNCATE_TABLE", "PUT_FILES", "REMOVE_FILES",
			},
		},
		{
			Name:     "select",
			Subtypes: []string{"SELECT", "CREATE_TABLE_AS_SELECT"},
		},
		{
			Name: "admin",
			Subtypes: []string{
				"CREATE", "CREATE_TABLE", "ALTER", "GRANT", "REVOKE", "DROP",
				"CREATE_TASK", "ALTER_TABLE_MODIFY_COLUMN", "ALTER_TABLE_ADD_COLUMN",
				"RENAME_TABLE", "ALTER_TABLE", "ALTER_MATERIALIZED_VIEW_LIFECYCLE",
				"USE", "RECLUSTER", "ALTER_TABLE_DROP_CLUSTERING_KEY",
				"ALTER_SESSION", "RESTORE",
				"CREATE_CONSTRAINT", "GET_FILES", "LIST_FILES",
			},
		},
		{
			Name:     "describe",
			Subtypes: []string{"DESCRIBE_QUERY", "DESCRIBE", "SHOW"},
		},
	}
}

// Validate checks that category names are unique and that every subtype belongs to
// exactly one category.
func (t Taxonomy) Validate() error {
	categories := make(map[string]struct{}, len(t))
	owners := make(map[string]string)
	var problems []string
	for _, c := range t {
		if c.Name == "" {
			problems = append(problems, "category with empty name")
			continue
		}
		if _, ok := categories[c.Name]; ok {
			problems = append(problems, fmt.Sprintf("category '%s' is defined more than once", c.Name))
		}
		categories[c.Name] = struct{}{}

		for _, s := range c.Subtypes {
			if owner, ok := owners[s]; ok {
				problems = append(problems, fmt.Sprintf("query type '%s' is classified under both '%s' and '%s'", s, owner, c.Name))
				continue
			}
			owners[s] = c.Name
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid query type taxonomy: %s", strings.Join(problems, "; "))
	}

	return nil
}

func (t Taxonomy) Names() []string {
	names := make([]string, 0, len(t))
	for _, c := range t {
		names = append(names, c.Name)
	}
	return names
}

// Subtypes returns every subtype in category order.
func (t Taxonomy) Subtypes() []string {
	var all []string
	for _, c := range t {
		all = append(all, c.Subtypes...)
	}
	return all
}

func (t Taxonomy) Category(name string) (Category, bool) {
	for _, c := range t {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// CategoryOf returns the category a subtype is classified under.
func (t Taxonomy) CategoryOf(subtype string) (string, bool) {
	for _, c := range t {
		for _, s := range c.Subtypes {
			if s == subtype {
				return c.Name, true
			}
		}
	}
	return "", false
}

// Colors assigns one palette color per subtype, in taxonomy order.
func (t Taxonomy) Colors() map[string]string {
	subtypes := t.Subtypes()
	colors := palette.Colors(len(subtypes))

	result := make(map[string]string, len(subtypes))
	for i, s := range subtypes {
		if i >= len(colors) {
			break
		}
		result[s] = colors[i]
	}
	return result
}
