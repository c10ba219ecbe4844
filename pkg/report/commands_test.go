package report

import (
	"testing"

	"github.com/snowusage/snowusage/pkg/depgraph"
	"github.com/stretchr/testify/assert"
)

var views = []depgraph.ViewDefinition{
	{Name: "V_ORDERS", Text: "create view V_ORDERS as select * from ORDERS"},
}

func TestDropCommands(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []string{
		"drop table ORDERS;",
		"drop view V_ORDERS;",
	}, DropCommands([]string{"ORDERS", "V_ORDERS"}, views))
	assert.Empty(t, DropCommands(nil, views))
}

func TestRetentionCommands(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		days int
		want []string
	}{
		{
			name: "default",
			want: []string{"alter table ORDERS set data_retention_time_in_days=21;"},
		},
		{
			name: "explicit",
			days: 1,
			want: []string{"alter table ORDERS set data_retention_time_in_days=1;"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tt.want, RetentionCommands([]string{"ORDERS"}, tt.days))
		})
	}
}

func TestViewDefinition(t *testing.T) {
	t.Parallel()

	text, ok := ViewDefinition(views, "V_ORDERS")
	assert.True(t, ok)
	assert.Equal(t, "create view V_ORDERS as select * from ORDERS", text)

	_, ok = ViewDefinition(views, "ORDERS")
	assert.False(t, ok)
}
