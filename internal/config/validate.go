package config

import (
	_ "embed"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
)

//go:embed schema.cue
var schemaSource string

// Validate checks a decoded Config against schema.cue, the cuelang.org/go
// dependency the teacher's go.mod names but never calls — config
// validation is its natural call site in this repo.
func Validate(c Config) error {
	ctx := cuecontext.New()
	schema := ctx.CompileString(schemaSource)
	if err := schema.Err(); err != nil {
		return fmt.Errorf("config: invalid schema.cue: %w", err)
	}

	doc := map[string]any{
		"project": map[string]any{
			"name":    c.Project.Name,
			"version": c.Project.Version,
			"entry":   c.Project.Entry,
		},
		"vm": map[string]any{
			"reg_buffer_limit": c.VM.RegBufferLimit,
			"call_frame_max":   c.VM.CallFrameMax,
			"gc_threshold":     c.VM.GCThreshold,
		},
		"natives": map[string]any{
			"search_path": c.Natives.SearchPath,
		},
	}

	value := ctx.Encode(doc)
	unified := schema.Unify(value)
	if err := unified.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	return nil
}
