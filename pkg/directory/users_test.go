package directory

import (
	"errors"
	"testing"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSearcher struct {
	entries []*ldap.Entry
	err     error

	got *ldap.SearchRequest
}

func (f *fakeSearcher) Search(req *ldap.SearchRequest) (*ldap.SearchResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	return &ldap.SearchResult{Entries: f.entries}, nil
}

func entry(cn string, attrs map[string][]string) *ldap.Entry {
	if cn != "" {
		attrs["cn"] = []string{cn}
	}
	return ldap.NewEntry("cn="+cn+",ou=Users,dc=openx,dc=org", attrs)
}

func TestUserFromEntry(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		entry *ldap.Entry
		want  User
	}{
		{
			name: "full entry",
			entry: entry("jdoe", map[string][]string{
				"mail":          {"jane.doe@openx.com"},
				"openxHireDate": {"20190301000000Z"},
				"objectClass":   {"inetOrgPerson", "openxPerson"},
				"displayName":   {"Jane Doe-Smith"},
				"manager":       {"cn=bboss,ou=Users,dc=openx,dc=org"},
			}),
			want: User{
				CN:             "jdoe",
				HireDate:       time.Date(2019, 3, 1, 0, 0, 0, 0, time.UTC),
				Email:          "jane.doe@openx.com",
				DisplayName:    "Jane Doe-Smith",
				AlternateEmail: "Jane.DoeSmith@openx.com",
				Manager:        "bboss",
			},
		},
		{
			name: "null mail falls back to cn",
			entry: entry("svc", map[string][]string{
				"mail":        {"null"},
				"objectClass": {"openxHeadless"},
			}),
			want: User{CN: "svc", Email: "svc@openx.com", Headless: true},
		},
		{
			name: "alternate equal to mail is dropped",
			entry: entry("bob", map[string][]string{
				"mail":        {"Bob.Ross@openx.com"},
				"displayName": {"Bob Ross"},
			}),
			want: User{CN: "bob", Email: "Bob.Ross@openx.com", DisplayName: "Bob Ross"},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := UserFromEntry(tt.entry, "openx.com")
			assert.True(t, tt.want.HireDate.Equal(got.HireDate))
			got.HireDate = tt.want.HireDate
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClient_Users(t *testing.T) {
	t.Parallel()

	searcher := &fakeSearcher{entries: []*ldap.Entry{
		entry("jdoe", map[string][]string{"mail": {"jdoe@openx.com"}}),
		entry("", map[string][]string{"ou": {"Users"}}),
	}}
	c := NewClient(searcher, DefaultConfig())

	users, err := c.Users()
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "jdoe", users[0].CN)

	assert.Equal(t, "ou=Users,dc=openx,dc=org", searcher.got.BaseDN)
	assert.Equal(t, ldap.ScopeWholeSubtree, searcher.got.Scope)
	assert.Contains(t, searcher.got.Attributes, "openxHireDate")
	assert.NoError(t, c.Close())
}

func TestClient_Users_Error(t *testing.T) {
	t.Parallel()

	c := NewClient(&fakeSearcher{err: errors.New("connection reset")}, DefaultConfig())
	_, err := c.Users()
	require.EqualError(t, err, "failed to search the directory under ou=Users,dc=openx,dc=org: connection reset")
}

func TestEmployees(t *testing.T) {
	t.Parallel()

	hired := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	users := []User{
		{CN: "jdoe", HireDate: hired, Email: "jdoe@openx.com", Manager: "bboss"},
		{CN: "bboss", HireDate: hired, Email: "bboss@openx.com"},
		{CN: "newbie", Email: "newbie@openx.com"},
		{CN: "robot", HireDate: hired, Headless: true, Email: "robot@openx.com"},
		{CN: "contractor", HireDate: hired, Email: "contractor@vendor.com"},
		{CN: "nomail", HireDate: hired},
		{CN: "qatest1", HireDate: hired, Email: "qatest1@openx.com"},
		{CN: "iridium-ops", HireDate: hired, Email: "ops@openx.com"},
	}

	got := Employees(users, "openx.com")
	assert.Equal(t, []User{users[0], users[1]}, got)

	g := OrgGraph(got)
	assert.Equal(t, []string{"bboss", "jdoe"}, g.Nodes())
	assert.True(t, g.HasEdge("bboss", "jdoe"))
	assert.Equal(t, []string{"jdoe"}, g.Downstream("bboss"))
}

func TestManagerCN(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "bboss", managerCN("cn=bboss,ou=Users,dc=openx,dc=org"))
	assert.Equal(t, "", managerCN(""))
	assert.Equal(t, "", managerCN("uid=x,dc=org"))
}
