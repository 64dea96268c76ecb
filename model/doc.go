// Package model holds the provider-agnostic model abstraction the workflow
// agents generate against.
//
// The Model interface unifies streaming and non-streaming generation behind
// channel-based Generate, with tool/function calls normalized into the
// Request/Response shapes so nothing above this package touches a vendor
// SDK. The openai and anthropic subpackages implement it against the real
// providers; MockModel scripts deterministic multi-turn conversations for
// tests.
package model
