// Package layouts wraps page content in the document shell.
package layouts

import (
	"context"
	"encoding/json"

	"github.com/templui/codekeeper/internal/config"
	"github.com/templui/codekeeper/internal/ctxkeys"
	"github.com/templui/codekeeper/internal/ui/components"
)

const defaultAppName = "Codekeeper"

type shell struct {
	AppName  string
	Tagline  string
	UserKeys bool
}

func shellFor(ctx context.Context) shell {
	s := shell{AppName: defaultAppName}
	if cfg := ctxkeys.Config(ctx); cfg != nil {
		s.AppName = cfg.AppName
		s.Tagline = cfg.AppTagline
		s.UserKeys = cfg.VisionCredentials == config.VisionCredentialsUser
	}
	return s
}

func pageTitle(title, appName string) string {
	if title == "" {
		return appName
	}
	return title + " | " + appName
}

// csrfHeaders makes htmx send the token on every request it issues.
func csrfHeaders(ctx context.Context) string {
	b, _ := json.Marshal(map[string]string{"X-CSRF-Token": ctxkeys.CSRFToken(ctx)})
	return string(b)
}

func navClass(ctx context.Context, path string) string {
	if ctxkeys.URLPath(ctx) == path {
		return components.Button(components.VariantSecondary, "px-3 py-1.5")
	}
	return components.Button(components.VariantGhost, "px-3 py-1.5")
}

func homePath(ctx context.Context) string {
	if ctxkeys.User(ctx) != nil {
		return "/app"
	}
	return "/"
}
