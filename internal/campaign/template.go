package campaign

import (
	"sync"

	"github.com/osteele/liquid"

	"github.com/machinesoul11/ss-website-sub000/internal/domain"
)

// Subject lines support Liquid placeholders ({{ github_username }},
// {{ team_size }}, any builder-provided field). The body itself is rendered
// provider-side from the template id, so only the subject is rendered here.

var (
	subjectEngine = liquid.NewEngine()
	subjectCache  sync.Map // template source -> *liquid.Template
)

func renderSubject(source string, u domain.User, data map[string]any) (string, error) {
	if source == "" {
		return "", nil
	}

	var tpl *liquid.Template
	if cached, ok := subjectCache.Load(source); ok {
		tpl = cached.(*liquid.Template)
	} else {
		parsed, err := subjectEngine.ParseString(source)
		if err != nil {
			return "", err
		}
		subjectCache.Store(source, parsed)
		tpl = parsed
	}

	bindings := map[string]any{
		"email":           u.Email,
		"github_username": u.GitHubHandle,
		"team_size":       string(u.TeamSize),
	}
	for k, v := range data {
		bindings[k] = v
	}

	out, err := tpl.RenderString(bindings)
	if err != nil {
		return "", err
	}
	return out, nil
}
