// internal/app/resources/resources.go
package resources

import (
	"embed"
	"sync"

	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Layout, footer and the loading indicators the stats widgets embed.
//
//go:embed templates/*.gohtml
var FS embed.FS

var registerOnce sync.Once

// LoadSharedTemplates registers the shared set. Safe to call more than once.
func LoadSharedTemplates() {
	registerOnce.Do(func() {
		templates.Register(templates.Set{
			Name:     "shared",
			FS:       FS,
			Patterns: []string{"templates/*.gohtml"},
		})
	})
}

// BootTemplates compiles every registered set, shared included, and
// installs the result as the engine used by templates.Render. Feature
// view packages must already be imported so their sets are registered.
// dev enables reloading from disk on each render.
func BootTemplates(dev bool, logger *zap.Logger) error {
	LoadSharedTemplates()
	eng := templates.New(dev)
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return err
	}
	templates.UseEngine(eng, logger)
	return nil
}
