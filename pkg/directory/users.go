package directory

import (
	"strings"
	"time"

	"github.com/go-ldap/ldap/v3"
	"github.com/pkg/errors"
	"github.com/snowusage/snowusage/pkg/date"
	"github.com/snowusage/snowusage/pkg/depgraph"
)

const headlessClass = "openxHeadless"

var userAttributes = []string{"cn", "mail", "openxHireDate", "objectClass", "displayName", "manager"}

// Searcher is the part of *ldap.Conn the client needs.
type Searcher interface {
	Search(searchRequest *ldap.SearchRequest) (*ldap.SearchResult, error)
}

type User struct {
	CN             string
	HireDate       time.Time
	Headless       bool
	Email          string
	DisplayName    string
	AlternateEmail string
	Manager        string
}

type Client struct {
	conn   Searcher
	config Config
}

// Dial opens an anonymous connection to the directory.
func Dial(c Config) (*Client, error) {
	conn, err := ldap.DialURL(c.URL)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to connect to the directory at %s", c.URL)
	}

	return NewClient(conn, c), nil
}

func NewClient(conn Searcher, c Config) *Client {
	return &Client{conn: conn, config: c}
}

func (c *Client) Close() error {
	if closer, ok := c.conn.(interface{ Close() error }); ok {
		return closer.Close()
	}
	return nil
}

// Users returns every entry under the configured base DN.
func (c *Client) Users() ([]User, error) {
	req := ldap.NewSearchRequest(
		c.config.BaseDN,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases, 0, 0, false,
		"(objectClass=*)",
		userAttributes,
		nil,
	)

	res, err := c.conn.Search(req)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to search the directory under %s", c.config.BaseDN)
	}

	users := make([]User, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if entry.GetAttributeValue("cn") == "" {
			continue
		}
		users = append(users, UserFromEntry(entry, c.config.Domain))
	}

	return users, nil
}

// UserFromEntry reads a directory entry. Entries with a literal "null" mail get the
// default address of their cn, and the alternate address is derived from the display
// name the way Snowflake user names are.
func UserFromEntry(entry *ldap.Entry, domain string) User {
	u := User{
		CN:          entry.GetAttributeValue("cn"),
		Email:       entry.GetAttributeValue("mail"),
		DisplayName: entry.GetAttributeValue("displayName"),
		Manager:     managerCN(entry.GetAttributeValue("manager")),
	}

	if u.Email == "null" && u.CN != "" {
		u.Email = u.CN + "@" + domain
	}

	if hired := entry.GetAttributeValue("openxHireDate"); hired != "" {
		u.HireDate = parseHireDate(hired)
	}

	for _, class := range entry.GetAttributeValues("objectClass") {
		if strings.HasPrefix(class, headlessClass) {
			u.Headless = true
		}
	}

	if u.DisplayName != "" {
		alt := strings.ReplaceAll(strings.ReplaceAll(u.DisplayName, "-", ""), " ", ".") + "@" + domain
		if alt != u.Email {
			u.AlternateEmail = alt
		}
	}

	return u
}

func managerCN(dn string) string {
	if dn == "" {
		return ""
	}

	parsed, err := ldap.ParseDN(dn)
	if err == nil && len(parsed.RDNs) > 0 {
		for _, attr := range parsed.RDNs[0].Attributes {
			if strings.EqualFold(attr.Type, "cn") {
				return attr.Value
			}
		}
	}

	_, rest, found := strings.Cut(dn, "cn=")
	if !found {
		return ""
	}
	cn, _, _ := strings.Cut(rest, ",")
	return cn
}

func parseHireDate(value string) time.Time {
	for _, format := range []string{"20060102150405Z0700", "20060102150405Z"} {
		if t, err := time.Parse(format, value); err == nil {
			return t
		}
	}

	t, err := date.ParseTime(value)
	if err != nil {
		return time.Time{}
	}
	return t
}

// Employees keeps the people among users: hired, not headless, with an address in the
// company domain and not one of the test or vendor accounts.
func Employees(users []User, domain string) []User {
	var employees []User
	for _, u := range users {
		if u.HireDate.IsZero() || u.Headless || u.Email == "" {
			continue
		}
		if !strings.Contains(u.Email, "@"+domain) {
			continue
		}
		if strings.Contains(u.CN, "test") || strings.Contains(u.CN, "iridium") {
			continue
		}
		employees = append(employees, u)
	}

	return employees
}

// OrgGraph links every manager to their reports.
func OrgGraph(employees []User) *depgraph.Graph {
	g := depgraph.New()
	for _, e := range employees {
		g.AddNode(e.CN)
		if e.Manager != "" {
			g.AddNode(e.Manager)
			g.AddEdge(e.Manager, e.CN)
		}
	}

	return g
}
