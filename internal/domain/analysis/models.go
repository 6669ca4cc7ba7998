package analysis

import "strings"

// Catalog is the closed allow-list of provider model identifiers. Anything
// outside it resolves to the default so caller strings never reach the
// provider request target.
type Catalog struct {
	defaultModel string
	allowed      map[string]string
	ordered      []string
}

func NewCatalog(defaultModel string, models []string) *Catalog {
	c := &Catalog{allowed: make(map[string]string, len(models)+1)}
	for _, m := range models {
		c.add(m)
	}
	def := normalizeModel(defaultModel)
	if def != "" {
		c.add(def)
		c.defaultModel = def
	} else if len(c.ordered) > 0 {
		c.defaultModel = c.ordered[0]
	}
	return c
}

func (c *Catalog) add(m string) {
	key := normalizeModel(m)
	if key == "" {
		return
	}
	if _, ok := c.allowed[key]; ok {
		return
	}
	c.allowed[key] = key
	c.ordered = append(c.ordered, key)
}

// Resolve maps a caller choice to an allowed identifier. The "models/" prefix
// used by some clients is accepted.
func (c *Catalog) Resolve(choice string) string {
	if m, ok := c.allowed[normalizeModel(choice)]; ok {
		return m
	}
	return c.defaultModel
}

// Allowed reports whether choice names an allow-listed model.
func (c *Catalog) Allowed(choice string) bool {
	_, ok := c.allowed[normalizeModel(choice)]
	return ok
}

func (c *Catalog) Default() string { return c.defaultModel }

func (c *Catalog) Models() []string {
	out := make([]string, len(c.ordered))
	copy(out, c.ordered)
	return out
}

func normalizeModel(m string) string {
	m = strings.ToLower(strings.TrimSpace(m))
	return strings.TrimPrefix(m, "models/")
}
