package cmd

import (
	"strings"
	"testing"

	"github.com/snowusage/snowusage/pkg/directory"
	"github.com/stretchr/testify/assert"
)

func TestOrgTree(t *testing.T) {
	t.Parallel()

	employees := []directory.User{
		{CN: "ceo"},
		{CN: "cto", Manager: "ceo"},
		{CN: "dev1", Manager: "cto"},
		{CN: "dev2", Manager: "cto"},
		{CN: "cfo", Manager: "ceo"},
		{CN: "contractor"},
	}
	g := directory.OrgGraph(employees)

	all := orgTree(g, employees, "").String()
	assert.True(t, strings.HasPrefix(all, "6 employees"))
	for _, cn := range []string{"ceo", "cto", "dev1", "dev2", "cfo", "contractor"} {
		assert.Contains(t, all, cn)
	}
	assert.Equal(t, 1, strings.Count(all, "dev1"))

	sub := orgTree(g, employees, "cto").String()
	assert.True(t, strings.HasPrefix(sub, "cto"))
	assert.Contains(t, sub, "dev1")
	assert.Contains(t, sub, "dev2")
	assert.NotContains(t, sub, "cfo")
}
