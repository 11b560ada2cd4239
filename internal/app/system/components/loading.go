// Package components builds view models for the small stateless pieces of
// markup shared by every page: loading indicators and the site footer.
package components

import "strings"

// Loading indicator variants.
const (
	LoadingSpinner  = "spinner"
	LoadingDots     = "dots"
	LoadingSkeleton = "skeleton"
	LoadingPage     = "page"
)

// Loading indicator sizes.
const (
	SizeSmall  = "sm"
	SizeMedium = "md"
	SizeLarge  = "lg"
)

// LoadingVM feeds the "loading" template.
type LoadingVM struct {
	Variant string
	Size    string
	Message string
	// Lines is the number of placeholder bars drawn by the skeleton variant.
	Lines []int
}

// Loading returns a loading indicator. Unknown variants fall back to a
// spinner and unknown sizes to medium.
func Loading(variant, size, message string) LoadingVM {
	vm := LoadingVM{
		Variant: strings.ToLower(strings.TrimSpace(variant)),
		Size:    strings.ToLower(strings.TrimSpace(size)),
		Message: strings.TrimSpace(message),
	}

	switch vm.Variant {
	case LoadingSpinner, LoadingDots, LoadingSkeleton, LoadingPage:
	default:
		vm.Variant = LoadingSpinner
	}

	switch vm.Size {
	case SizeSmall, SizeMedium, SizeLarge:
	default:
		vm.Size = SizeMedium
	}

	if vm.Variant == LoadingSkeleton {
		n := map[string]int{SizeSmall: 2, SizeMedium: 3, SizeLarge: 5}[vm.Size]
		vm.Lines = make([]int, n)
		for i := range vm.Lines {
			vm.Lines[i] = i
		}
	}

	if vm.Message == "" && vm.Variant == LoadingPage {
		vm.Message = "Loading…"
	}

	return vm
}
