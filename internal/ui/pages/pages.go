// Package pages holds one templ component per screen. Full screens wrap
// themselves in a layout; fragments polled or swapped by htmx do not.
package pages

import (
	"fmt"
	"time"

	"github.com/templui/codekeeper/internal/countdown"
	"github.com/templui/codekeeper/internal/model"
	"github.com/templui/codekeeper/internal/ui/components"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

type AuthProps struct {
	SignUp        bool
	Email         string
	Error         string
	GoogleEnabled bool
}

type GoalSetupProps struct {
	Description string
	Deadline    string
	Error       string
}

type LockSetupProps struct {
	Goal  *model.Goal
	Error string
}

type CountdownProps struct {
	Remaining      countdown.Remaining
	CanSubmit      bool
	AllowLateProof bool
}

type TrackingProps struct {
	Goal      *model.Goal
	Countdown CountdownProps
	Result    *ProofResultProps
}

type ProofResultProps struct {
	Verified bool
	Message  string
}

type UnlockedProps struct {
	Goal *model.Goal
	// LockImage must be a data URI already checked to be an image.
	LockImage string
}

type HistoryItem struct {
	Goal      *model.Goal
	Status    string
	Archived  bool
	LockImage string
	Proofs    []*model.File
}

type HistoryProps struct {
	Items []HistoryItem
}

type VisionKeyProps struct {
	Key   *model.VisionKey
	Error string
	Saved bool
}

type HelpLink struct {
	Title  string
	Slug   string
	Active bool
}

type HelpProps struct {
	Title string
	// Content is trusted HTML rendered from the embedded markdown.
	Content     string
	LastUpdated string
	Links       []HelpLink
}

func authTitle(signUp bool) string {
	if signUp {
		return "Create account"
	}
	return "Sign in"
}

func authAction(signUp bool) string {
	if signUp {
		return "/auth/signup"
	}
	return "/auth/signin"
}

// titleCase builds a caser per call since casers keep state.
func titleCase(s string) string {
	return cases.Title(language.English).String(s)
}

func pad2(n int) string {
	return fmt.Sprintf("%02d", n)
}

func refreshTrigger() string {
	return fmt.Sprintf("every %ds", int(countdown.RefreshInterval/time.Second))
}

func statusBadge(goal *model.Goal) string {
	const base = "rounded-full px-2 py-0.5 text-xs font-medium bg-zinc-100 text-zinc-700"
	if goal.IsCompleted() {
		return components.Merge(base, "bg-green-100 text-green-800")
	}
	return base
}

func fileElementID(id string) string {
	return "file-" + id
}

func helpLinkClass(active bool) string {
	if active {
		return components.Button(components.VariantSecondary, "w-full justify-start px-3 py-1.5")
	}
	return components.Button(components.VariantGhost, "w-full justify-start px-3 py-1.5")
}
