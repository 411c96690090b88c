package command

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/yndnr/notekeep-go/internal/cli/config"
	"github.com/yndnr/notekeep-go/internal/cli/output"
	"github.com/yndnr/notekeep-go/internal/client/api"
	"github.com/yndnr/notekeep-go/internal/core/domain"
	"github.com/yndnr/notekeep-go/internal/infra/buildinfo"
)

// sessionView is the output of login and whoami.
type sessionView struct {
	Authenticated bool             `json:"authenticated" yaml:"authenticated"`
	User          *domain.Identity `json:"user,omitempty" yaml:"user,omitempty"`
	Credential    string           `json:"credential,omitempty" yaml:"credential,omitempty"`
	ExpiresAt     *time.Time       `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Backend       string           `json:"backend" yaml:"backend"`
}

func newSessionView(s domain.Session, backend string) sessionView {
	v := sessionView{
		Authenticated: s.IsAuthenticated(),
		User:          s.Identity,
		Credential:    s.Credential.Redacted(),
		Backend:       backend,
	}
	if exp, ok := s.Credential.ExpiresAt(); ok {
		v.ExpiresAt = &exp
	}
	return v
}

func (v sessionView) Table(wide bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	if !v.Authenticated {
		t.AddRow("status", "anonymous")
		t.AddRow("backend", v.Backend)
		return t
	}
	t.AddRow("status", "authenticated")
	if v.User != nil {
		t.AddRow("user", v.User.Name)
		t.AddRow("email", v.User.Email)
		if wide {
			t.AddRow("id", v.User.ID)
			t.AddRow("type", v.User.Type)
		}
	}
	t.AddRow("credential", v.Credential)
	if v.ExpiresAt != nil {
		t.AddRow("expires", output.FormatTime(*v.ExpiresAt)+" ("+until(*v.ExpiresAt, time.Now())+")")
	}
	t.AddRow("backend", v.Backend)
	return t
}

// identityView renders a registered account.
type identityView struct {
	domain.Identity `yaml:",inline"`
}

func (v identityView) Table(bool) *output.Table {
	t := output.NewTable("ID", "NAME", "EMAIL")
	t.AddRow(v.ID, v.Name, v.Email)
	return t
}

// profileView renders the profile.
type profileView struct {
	domain.Profile `yaml:",inline"`
}

func (v profileView) Table(wide bool) *output.Table {
	headers := []string{"ID", "NAME", "EMAIL", "CREATED"}
	if wide {
		headers = append(headers, "UPDATED", "PERMISSIONS")
	}
	t := output.NewTable(headers...)
	row := []string{v.ID, v.Name, v.Email, output.FormatTime(v.CreatedAt)}
	if wide {
		names := make([]string, 0, len(v.Permissions))
		for _, p := range v.Permissions {
			names = append(names, p.Name)
		}
		row = append(row, output.FormatTime(v.UpdatedAt), strings.Join(names, ","))
	}
	t.AddRow(row...)
	return t
}

// noteListView renders a page of notes.
type noteListView struct {
	Notes      []domain.Note   `json:"notes" yaml:"notes"`
	Pagination *api.Pagination `json:"pagination,omitempty" yaml:"pagination,omitempty"`
}

func (v noteListView) Table(wide bool) *output.Table {
	headers := []string{"ID", "TITLE", "AUTHOR", "UPDATED"}
	if wide {
		headers = append(headers, "CREATED", "CONTENT")
	}
	t := output.NewTable(headers...)
	for _, n := range v.Notes {
		row := []string{n.ID, output.Truncate(n.Title, 40), n.User.Name, output.FormatTime(n.UpdatedAt)}
		if wide {
			row = append(row, output.FormatTime(n.CreatedAt), output.Truncate(n.Content, 60))
		}
		t.AddRow(row...)
	}
	return t
}

// noteView renders a single note with its full content.
type noteView struct {
	domain.Note `yaml:",inline"`
}

func (v noteView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("id", v.ID)
	t.AddRow("title", v.Title)
	t.AddRow("author", v.User.Name)
	t.AddRow("created", output.FormatTime(v.CreatedAt))
	t.AddRow("updated", output.FormatTime(v.UpdatedAt))
	t.AddRow("content", v.Content)
	return t
}

// configView renders the effective configuration. Durations are written
// in their string form for every format.
type configView struct {
	cfg *config.Config
}

func (v configView) tree() (map[string]any, error) {
	data, err := yaml.Marshal(v.cfg)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	return m, nil
}

func (v configView) MarshalJSON() ([]byte, error) {
	m, err := v.tree()
	if err != nil {
		return nil, err
	}
	return json.Marshal(m)
}

func (v configView) MarshalYAML() (any, error) {
	return v.cfg, nil
}

func (v configView) Table(bool) *output.Table {
	t := output.NewTable("KEY", "VALUE")
	m, err := v.tree()
	if err != nil {
		t.AddRow("error", err.Error())
		return t
	}
	flat := make(map[string]string)
	flatten("", m, flat)
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		t.AddRow(k, flat[k])
	}
	return t
}

func flatten(prefix string, m map[string]any, out map[string]string) {
	for k, val := range m {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		switch x := val.(type) {
		case map[string]any:
			flatten(key, x, out)
		case nil:
			out[key] = ""
		case bool:
			out[key] = strconv.FormatBool(x)
		default:
			out[key] = fmt.Sprint(x)
		}
	}
}

// versionView renders build information.
type versionView struct {
	buildinfo.Info `yaml:",inline"`
}

func (v versionView) Table(bool) *output.Table {
	t := output.NewTable("FIELD", "VALUE")
	t.AddRow("version", v.Version)
	t.AddRow("commit", v.Commit)
	t.AddRow("built", v.BuildTime)
	t.AddRow("go", v.GoVersion)
	t.AddRow("platform", v.Platform)
	return t
}
