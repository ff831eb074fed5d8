// Package generation provides interfaces and an error taxonomy for the two
// external producers the pipeline depends on: the idea producer that turns
// a title into a thumbnail concept, and the image producer that renders a
// concept into an artifact. It abstracts the details of the LLM API
// integration (Gemini), allowing the core to stay decoupled from specific
// external services.
package generation
