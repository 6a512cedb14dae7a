package pub

import (
	"fmt"
	"strings"
	"text/template"
)

// DefaultURLTemplate builds an authenticated HTTPS remote URL.
const DefaultURLTemplate = "https://{{.User}}:{{.Token}}@{{.Host}}/{{.Owner}}/{{.Repo}}.git"

// RemoteSpec holds the values used to render the remote URL. None of them
// have defaults in the core; they come from configuration.
type RemoteSpec struct {
	Host  string
	Owner string
	// User authenticates the push. Defaults to Owner.
	User        string
	Repo        string
	Token       string
	URLTemplate string
}

// Validate reports every missing value as ErrConfigurationMissing.
func (r RemoteSpec) Validate() error {
	var missing []string
	if r.Host == "" {
		missing = append(missing, "remote.host")
	}
	if r.Owner == "" {
		missing = append(missing, "remote.owner")
	}
	if r.Repo == "" {
		missing = append(missing, "remote.repo")
	}
	if r.Token == "" {
		missing = append(missing, "remote.token")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrConfigurationMissing, strings.Join(missing, ", "))
	}
	return nil
}

// URL renders the authenticated remote URL.
func (r RemoteSpec) URL() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}
	text := r.URLTemplate
	if text == "" {
		text = DefaultURLTemplate
	}
	tmpl, err := template.New("remote").Option("missingkey=error").Parse(text)
	if err != nil {
		return "", fmt.Errorf("parsing remote url template: %w", err)
	}

	data := r
	if data.User == "" {
		data.User = data.Owner
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering remote url template: %w", err)
	}
	return b.String(), nil
}

// DisplayURL returns the browsable repository location without credentials.
func (r RemoteSpec) DisplayURL() string {
	return fmt.Sprintf("https://%s/%s/%s", r.Host, r.Owner, r.Repo)
}

// Redact replaces the token in s, if present.
func (r RemoteSpec) Redact(s string) string {
	if r.Token == "" {
		return s
	}
	return strings.ReplaceAll(s, r.Token, "***")
}
