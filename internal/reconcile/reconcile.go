// Package reconcile merges an update request against the stored product:
// which images survive, which are released, and the final patch.
package reconcile

import (
	"encoding/json"
	"slices"
	"strings"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
	"github.com/EvershineMarbles/EvershineBackend/internal/validation"
)

// KeepList is a caller's instruction about which existing images to keep.
// A nil KeepList means no instruction was given.
type KeepList []string

// ParseKeepImages decodes a JSON array of image URLs. A blank value means no
// instruction; "[]" means keep nothing.
func ParseKeepImages(raw string) (KeepList, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	var urls []string
	if err := json.Unmarshal([]byte(raw), &urls); err != nil {
		return nil, validation.FieldError{
			Field:  validation.FieldKeepImages,
			Reason: "must be a JSON array of image URLs",
		}
	}
	if urls == nil {
		urls = []string{}
	}
	return KeepList(urls), nil
}

// KeptImages returns the existing images that survive the update. Without an
// instruction every existing image is kept. Otherwise the caller's order is
// used, dropping URLs the product does not own and duplicates.
func KeptImages(existing []string, keep KeepList) []string {
	if keep == nil {
		return slices.Clone(existing)
	}

	kept := make([]string, 0, len(keep))
	for _, url := range keep {
		if !slices.Contains(existing, url) || slices.Contains(kept, url) {
			continue
		}
		kept = append(kept, url)
	}
	return kept
}

// MergeImages returns kept followed by uploaded.
func MergeImages(kept, uploaded []string) []string {
	merged := make([]string, 0, len(kept)+len(uploaded))
	merged = append(merged, kept...)
	return append(merged, uploaded...)
}

// ReleasedImages returns the existing images missing from final.
func ReleasedImages(existing, final []string) []string {
	var released []string
	for _, url := range existing {
		if !slices.Contains(final, url) {
			released = append(released, url)
		}
	}
	return released
}

// Plan is the outcome of reconciling an update.
type Plan struct {
	Patch    model.ProductPatch
	Released []string
}

// Build combines the scalar patch with the final image list. Images are only
// patched when they differ from existing.
func Build(in validation.UpdateInput, existing, kept, uploaded []string) Plan {
	final := MergeImages(kept, uploaded)

	patch := in.Patch
	if !slices.Equal(existing, final) {
		patch.Images = model.Set(final)
	}

	return Plan{
		Patch:    patch,
		Released: ReleasedImages(existing, final),
	}
}
