package directory

type Config struct {
	URL    string `envconfig:"LDAP_URL" validate:"required" yaml:"url"`
	BaseDN string `envconfig:"LDAP_BASE_DN" validate:"required" yaml:"base_dn"`
	Domain string `envconfig:"LDAP_DOMAIN" validate:"required" yaml:"domain"`
}

func DefaultConfig() Config {
	return Config{
		URL:    "ldap://directory.prod.gcp.openx.org:389",
		BaseDN: "ou=Users,dc=openx,dc=org",
		Domain: "openx.com",
	}
}
