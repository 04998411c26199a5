// Package model defines the provider-agnostic abstraction used to talk to
// chat language models.
//
// Core goals:
//   - Unify streaming and non-streaming generation behind a single interface
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement Model so the planner and executor
// remain decoupled from vendor SDKs. Complete drains a generation into one
// text completion, which is all the orchestration layers need.
package model
