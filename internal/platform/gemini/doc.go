// Package gemini provides Google Gemini bindings for the generation
// interfaces: an idea producer that drafts thumbnail concepts as structured
// JSON, and an image renderer that turns a concept's full prompt plus a
// small set of reference images into a finished thumbnail.
//
// Both bindings perform a single API call per invocation. Retry policy
// lives with the callers (the batch orchestrator skips failed idea slots,
// the dispatcher re-runs failed image attempts), so the bindings only
// classify failures into the generation error taxonomy.
package gemini
