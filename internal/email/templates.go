package email

import (
	_ "embed"
	"fmt"
	"html"
	"io"
	"sort"
	"strings"

	"github.com/Parthgupta2808gmailcom/CMS-Admin-Dashboard/internal/domain"

	log "github.com/sirupsen/logrus"
	"github.com/valyala/fasttemplate"
	"gopkg.in/yaml.v3"
)

const (
	startTag = "{{"
	endTag   = "}}"
)

//go:embed templates.yaml
var defaultTemplates []byte

type Template struct {
	Subject string `yaml:"subject"`
	HTML    string `yaml:"html"`
	Text    string `yaml:"text"`
}

// Catalog holds one Template per domain.EmailTemplate.
type Catalog struct {
	templates map[domain.EmailTemplate]Template
}

// DefaultCatalog parses the catalogue compiled into the binary.
func DefaultCatalog() (*Catalog, error) {
	return ParseCatalog(defaultTemplates)
}

func ParseCatalog(data []byte) (*Catalog, error) {
	raw := map[string]Template{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse email templates: %w", err)
	}

	c := &Catalog{templates: make(map[domain.EmailTemplate]Template, len(raw))}
	for name, t := range raw {
		key := domain.EmailTemplate(name)
		if !key.Valid() {
			return nil, fmt.Errorf("unknown email template %q", name)
		}
		if t.Subject == "" || t.HTML == "" {
			return nil, fmt.Errorf("email template %q needs a subject and an html body", name)
		}
		c.templates[key] = t
	}
	return c, nil
}

func (c *Catalog) Get(name domain.EmailTemplate) (Template, bool) {
	t, ok := c.templates[name]
	return t, ok
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.templates))
	for k := range c.templates {
		names = append(names, string(k))
	}
	sort.Strings(names)
	return names
}

// Render substitutes {{ dotted.key }} placeholders from data. Missing keys
// render empty. A template with an unterminated tag is returned unchanged.
func Render(tmpl string, data map[string]any) string {
	return render(tmpl, data, false)
}

// RenderHTML is Render with every substituted value HTML-escaped.
func RenderHTML(tmpl string, data map[string]any) string {
	return render(tmpl, data, true)
}

func render(tmpl string, data map[string]any, escape bool) string {
	out, err := fasttemplate.ExecuteFuncStringWithErr(tmpl, startTag, endTag, func(w io.Writer, tag string) (int, error) {
		v := Lookup(data, strings.TrimSpace(tag))
		if escape {
			v = html.EscapeString(v)
		}
		return w.Write([]byte(v))
	})
	if err != nil {
		log.WithError(err).Warn("Template rendering failed")
		return tmpl
	}
	return out
}

// Lookup walks a dotted path through nested maps and formats the leaf.
func Lookup(data map[string]any, path string) string {
	var cur any = data
	for _, part := range strings.Split(path, ".") {
		switch m := cur.(type) {
		case map[string]any:
			cur = m[part]
		case map[string]string:
			cur = m[part]
		default:
			return ""
		}
		if cur == nil {
			return ""
		}
	}
	switch v := cur.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
