package validation

import (
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/EvershineMarbles/EvershineBackend/internal/model"
)

// CheckFiles checks every uploaded image against the size and type rules.
// The content type is sniffed from the bytes; the declared type is ignored
// and replaced with the detected one.
func (v *Validator) CheckFiles(files []model.ImageFile) error {
	for i := range files {
		f := &files[i]

		if len(f.Data) == 0 {
			return fieldErr(FieldImages, "%q is empty", f.Filename)
		}
		if v.rules.MaxFileSize > 0 && int64(len(f.Data)) > v.rules.MaxFileSize {
			return fieldErr(FieldImages, "%q exceeds the %d byte limit", f.Filename, v.rules.MaxFileSize)
		}

		detected := mimetype.Detect(f.Data)
		if !v.allowed(detected) {
			return fieldErr(FieldImages, "%q has unsupported type %s", f.Filename, detected.String())
		}
		f.ContentType = detected.String()
	}
	return nil
}

func (v *Validator) allowed(m *mimetype.MIME) bool {
	if len(v.rules.AllowedTypes) == 0 {
		return true
	}
	return slices.ContainsFunc(v.rules.AllowedTypes, func(t string) bool {
		return m.Is(t)
	})
}
