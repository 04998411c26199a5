// Package plan turns a free-form user request into a bounded list of
// tool-grounded steps using a planning model.
//
// The model is asked for {"steps": [...]}; its answer is filtered so that
// every surviving step is non-empty, is not conversational filler and names
// at least one known tool. Any failure degrades to a single-step plan holding
// the original request.
package plan
