package guard

// Config holds the guard's redirect destinations and policy switches
type Config struct {
	LoginPath     string
	ReturnToParam string
	NotMemberPath string
	ForbiddenPath string
	FrozenPath    string
	// Production hides the denial reason from redirects
	Production   bool
	FrozenPolicy FrozenPolicy
}

// DefaultConfig returns the default guard configuration
func DefaultConfig() Config {
	return Config{
		LoginPath:     "/login",
		ReturnToParam: "redirect_to",
		NotMemberPath: "/organizations",
		ForbiddenPath: "/forbidden",
		FrozenPath:    "/forbidden",
		Production:    true,
		FrozenPolicy:  FrozenPolicyAll,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LoginPath == "" {
		c.LoginPath = d.LoginPath
	}
	if c.ReturnToParam == "" {
		c.ReturnToParam = d.ReturnToParam
	}
	if c.NotMemberPath == "" {
		c.NotMemberPath = d.NotMemberPath
	}
	if c.ForbiddenPath == "" {
		c.ForbiddenPath = d.ForbiddenPath
	}
	if c.FrozenPath == "" {
		c.FrozenPath = c.ForbiddenPath
	}
	if c.FrozenPolicy == "" {
		c.FrozenPolicy = d.FrozenPolicy
	}
	return c
}
