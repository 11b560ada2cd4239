package components

import (
	"html/template"
	"strings"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/apiconfig"
	"github.com/dalemusser/edusync/internal/app/system/htmlsanitize"
)

// FooterLink is one entry in a footer column.
type FooterLink struct {
	Label string
	Href  string
}

// FooterVM feeds the "footer" template.
type FooterVM struct {
	SiteName     string
	Year         int
	QuickLinks   []FooterLink
	SupportLinks []FooterLink
	SupportEmail string
	CustomHTML   template.HTML
}

// NewFooter builds the footer. customHTML comes from configuration and is
// sanitized; an empty siteName falls back to "EduSync".
func NewFooter(siteName, customHTML, supportEmail string, now time.Time) FooterVM {
	siteName = strings.TrimSpace(siteName)
	if siteName == "" {
		siteName = "EduSync"
	}

	vm := FooterVM{
		SiteName: siteName,
		Year:     now.Year(),
		QuickLinks: []FooterLink{
			{Label: "Home", Href: "/"},
			{Label: "Dashboard", Href: "/dashboard"},
			{Label: "Sign in", Href: apiconfig.Default.Path(apiconfig.AuthLogin)},
		},
		SupportLinks: []FooterLink{
			{Label: "System status", Href: apiconfig.Default.Path(apiconfig.Health)},
		},
		SupportEmail: strings.TrimSpace(supportEmail),
		CustomHTML:   htmlsanitize.SanitizeToHTML(customHTML),
	}

	if vm.SupportEmail != "" {
		vm.SupportLinks = append(vm.SupportLinks, FooterLink{Label: "Contact support", Href: "mailto:" + vm.SupportEmail})
	}
	return vm
}
