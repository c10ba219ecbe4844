package attribution

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsGenuineReference(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		catalog      []string
		text         string
		table        string
		excludeLabel string
		want         bool
	}{
		{
			name:    "longer embedding name suppresses the shorter one",
			catalog: []string{"DIM_SITES", "DIM_SITES_TO_OWNERS"},
			text:    "SELECT * FROM DIM_SITES_TO_OWNERS",
			table:   "DIM_SITES",
			want:    false,
		},
		{
			name:    "the longer name itself is accepted",
			catalog: []string{"DIM_SITES", "DIM_SITES_TO_OWNERS"},
			text:    "SELECT * FROM DIM_SITES_TO_OWNERS",
			table:   "DIM_SITES_TO_OWNERS",
			want:    true,
		},
		{
			name:    "comparison is case insensitive",
			catalog: []string{"ORDERS"},
			text:    "insert into orders values (1)",
			table:   "ORDERS",
			want:    true,
		},
		{
			name:    "no mention",
			catalog: []string{"ORDERS"},
			text:    "select * from customers",
			table:   "ORDERS",
			want:    false,
		},
		{
			name:    "both names present still suppresses the shorter one",
			catalog: []string{"DIM_SITES", "DIM_SITES_TO_OWNERS"},
			text:    "select * from dim_sites join dim_sites_to_owners using (id)",
			table:   "DIM_SITES",
			want:    false,
		},
		{
			name:         "the excluded label is not a competing name",
			catalog:      []string{"DIM_SITES", "DIM_SITES_V"},
			text:         "create view dim_sites_v as select * from dim_sites",
			table:        "DIM_SITES",
			excludeLabel: "DIM_SITES_V",
			want:         true,
		},
		{
			name:    "without an excluded label the view name competes",
			catalog: []string{"DIM_SITES", "DIM_SITES_V"},
			text:    "create view dim_sites_v as select * from dim_sites",
			table:   "DIM_SITES",
			want:    false,
		},
		{
			name:    "name at end of string is a plain substring match",
			catalog: []string{"ORDERS"},
			text:    "select * from orders",
			table:   "ORDERS",
			want:    true,
		},
		{
			name:    "prefix of an unrelated identifier still matches",
			catalog: []string{"ORDERS"},
			text:    "select * from orders_archive",
			table:   "ORDERS",
			want:    true,
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			idx := BuildCollisionIndex(tt.catalog)
			assert.Equal(t, tt.want, IsGenuineReference(tt.text, tt.table, idx, tt.excludeLabel))
			assert.Equal(t, tt.want, NewMatcher(tt.catalog).IsGenuineReference(tt.text, tt.table, tt.excludeLabel))
		})
	}
}

func TestMatcher_References(t *testing.T) {
	t.Parallel()

	m := NewMatcher([]string{"DIM_SITES", "DIM_SITES_TO_OWNERS", "ORDERS", "CUSTOMERS", "ORDERS"})

	assert.Equal(t, []string{"DIM_SITES", "DIM_SITES_TO_OWNERS", "ORDERS", "CUSTOMERS"}, m.Tables())
	assert.Equal(t,
		[]string{"DIM_SITES_TO_OWNERS", "ORDERS"},
		m.References("select * from dim_sites_to_owners o join orders x on o.id = x.id", ""),
	)
	assert.Empty(t, m.References("select 1", ""))
	assert.True(t, m.Mentions("select * from DIM_SITES_TO_OWNERS", "DIM_SITES"))
}
