// Package models manages recognition model lifecycle: the supported-variant
// registry, artifact download with progress, and hand-off to the engine.
package models

import "fmt"

// DefaultRepo is the artifact repository the catalog downloads from.
const DefaultRepo = "ggerganov/whisper.cpp"

// DefaultModel is reported before any model has been loaded.
const DefaultModel = "base"

// Variant describes one entry of the supported-model registry.
type Variant struct {
	ID        string
	FileName  string
	SizeLabel string
	English   bool
}

// URL returns the download URL for the variant within repo.
func (v Variant) URL(repo string) string {
	if repo == "" {
		repo = DefaultRepo
	}
	return fmt.Sprintf("https://huggingface.co/%s/resolve/main/%s", repo, v.FileName)
}

// catalog is the static registry of supported whisper.cpp variants.
var catalog = []Variant{
	{ID: "tiny", FileName: "ggml-tiny.bin", SizeLabel: "~75 MB"},
	{ID: "tiny.en", FileName: "ggml-tiny.en.bin", SizeLabel: "~75 MB", English: true},
	{ID: "base", FileName: "ggml-base.bin", SizeLabel: "~142 MB"},
	{ID: "base.en", FileName: "ggml-base.en.bin", SizeLabel: "~142 MB", English: true},
	{ID: "small", FileName: "ggml-small.bin", SizeLabel: "~466 MB"},
	{ID: "small.en", FileName: "ggml-small.en.bin", SizeLabel: "~466 MB", English: true},
	{ID: "medium", FileName: "ggml-medium.bin", SizeLabel: "~1.5 GB"},
	{ID: "medium.en", FileName: "ggml-medium.en.bin", SizeLabel: "~1.5 GB", English: true},
	{ID: "large-v3", FileName: "ggml-large-v3.bin", SizeLabel: "~2.9 GB"},
	{ID: "large-v3-turbo", FileName: "ggml-large-v3-turbo.bin", SizeLabel: "~1.6 GB"},
}

// Catalog returns a copy of the supported-variant registry.
func Catalog() []Variant {
	variants := make([]Variant, len(catalog))
	copy(variants, catalog)
	return variants
}

// Lookup finds a catalog entry by ID.
func Lookup(id string) (Variant, bool) {
	for _, v := range catalog {
		if v.ID == id {
			return v, true
		}
	}
	return Variant{}, false
}
