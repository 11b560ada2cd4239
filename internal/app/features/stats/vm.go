package stats

import (
	"github.com/dalemusser/edusync/internal/app/system/components"
	"github.com/dalemusser/edusync/internal/app/system/numfmt"
	"github.com/dalemusser/edusync/internal/domain/models"
)

// Widget display modes.
const (
	ModeLive  = "live"
	ModeDemo  = "demo"
	ModeError = "error"
)

// missingValue is shown on a card whose counter the service did not report.
const missingValue = "—"

var fieldLabels = map[models.StatsField]string{
	models.FieldUsers:          "Total Users",
	models.FieldResources:      "Resources",
	models.FieldDownloads:      "Downloads",
	models.FieldActiveSessions: "Active Sessions",
	models.FieldStudents:       "Students",
	models.FieldFaculty:        "Faculty",
	models.FieldRecentUploads:  "Recent Uploads",
}

var categoryTitles = map[models.StatsCategory]string{
	models.StatsPublic:  "Platform Statistics",
	models.StatsAdmin:   "Administration Overview",
	models.StatsFaculty: "Teaching Overview",
}

// CardVM is one metric card.
type CardVM struct {
	Key      string `json:"key"`
	Label    string `json:"label"`
	Value    string `json:"value"`
	Raw      int64  `json:"raw"`
	Reported bool   `json:"reported"`
}

// WidgetVM feeds the "stats_widget" template and the .json endpoint.
type WidgetVM struct {
	Category    string               `json:"category"`
	Title       string               `json:"title"`
	Cards       []CardVM             `json:"cards"`
	Mode        string               `json:"mode"`
	Outcome     string               `json:"outcome"`
	Pending     bool                 `json:"pending"`
	Banner      string               `json:"banner,omitempty"`
	LastUpdated string               `json:"lastUpdated,omitempty"`
	Seq         uint64               `json:"seq"`
	Loading     components.LoadingVM `json:"-"`

	// Filled by the handler.
	RefreshSeconds int    `json:"refreshSeconds,omitempty"`
	PartialURL     string `json:"-"`
	RefreshURL     string `json:"-"`
}

// BuildWidgetVM turns a snapshot into display cards. Cards follow the
// category's field order and values use compact K/M formatting.
func BuildWidgetVM(snap models.StatsSnapshot) WidgetVM {
	vm := WidgetVM{
		Category: string(snap.Category),
		Title:    categoryTitles[snap.Category],
		Outcome:  string(snap.Outcome),
		Banner:   snap.Message,
		Seq:      snap.Seq,
	}
	if vm.Title == "" {
		vm.Title = "Statistics"
	}

	for _, f := range snap.Category.Fields() {
		card := CardVM{Key: string(f), Label: fieldLabels[f], Value: missingValue}
		if n, ok := snap.Counters.Value(f); ok {
			card.Raw = n
			card.Reported = true
			card.Value = numfmt.Compact(n)
		}
		vm.Cards = append(vm.Cards, card)
	}

	switch snap.Outcome {
	case models.OutcomeLive:
		vm.Mode = ModeLive
	case models.OutcomeError:
		vm.Mode = ModeError
	case models.OutcomePending:
		vm.Mode = ModeDemo
		vm.Pending = true
		vm.Loading = components.Loading(components.LoadingSkeleton, components.SizeSmall, "Loading statistics…")
	default:
		vm.Mode = ModeDemo
	}

	if !snap.FetchedAt.IsZero() {
		vm.LastUpdated = snap.FetchedAt.Format("3:04:05 PM")
	}
	return vm
}
