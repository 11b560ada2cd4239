package viewdata

import (
	"net/http"
	"sync"
	"time"

	"github.com/dalemusser/edusync/internal/app/system/authz"
	"github.com/dalemusser/edusync/internal/app/system/components"
	"github.com/dalemusser/waffle/pantry/httpnav"
)

// Site holds the site-wide presentation settings loaded from config.
type Site struct {
	Name         string
	FooterHTML   string
	SupportEmail string
}

var (
	siteMu sync.RWMutex
	site   = Site{Name: "EduSync"}
)

// Init sets the site settings. Call this once at startup from bootstrap.
func Init(s Site) {
	siteMu.Lock()
	defer siteMu.Unlock()
	if s.Name == "" {
		s.Name = "EduSync"
	}
	site = s
}

// CurrentSite returns the settings passed to Init.
func CurrentSite() Site {
	siteMu.RLock()
	defer siteMu.RUnlock()
	return site
}

// BaseVM contains common fields for all view models.
// Embed this struct in your feature-specific view models.
//
// Usage:
//
//	type myPageData struct {
//	    viewdata.BaseVM
//	    // page-specific fields...
//	}
//
//	data := myPageData{
//	    BaseVM: viewdata.NewBaseVM(r, "Page Title", "/default-back"),
//	}
type BaseVM struct {
	SiteName string
	Footer   components.FooterVM

	// User context (from auth middleware)
	IsLoggedIn bool
	Role       string
	UserName   string

	// Page context
	Title       string
	BackURL     string
	CurrentPath string
}

// NewBaseVM creates a fully populated BaseVM for a page.
//
// Parameters:
//   - r: the HTTP request
//   - title: the page title
//   - backDefault: default URL for the back button if none in request
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	role, name, _, signedIn := authz.UserCtx(r)
	s := CurrentSite()

	return BaseVM{
		SiteName:    s.Name,
		Footer:      components.NewFooter(s.Name, s.FooterHTML, s.SupportEmail, time.Now()),
		IsLoggedIn:  signedIn,
		Role:        role,
		UserName:    name,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
	}
}
