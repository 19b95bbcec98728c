// Package provider fetches schema documents from remote locations.
//
// The credential core never performs I/O; callers that keep schemas behind
// URLs resolve them here first and hand the resulting JSON value to
// vc.CreateCredential or vc.NewCredential.
package provider

import (
	"context"
)

// Provider defines the interface for external services the credential
// logic can be given. Custom implementations may be injected in place of
// the default HTTP provider.
type Provider interface {
	// SchemaResolver fetches the schema document at url and returns it as a
	// JSON value (map[string]interface{}, []interface{}, string, float64,
	// bool or nil).
	SchemaResolver(ctx context.Context, url string) (interface{}, error)
}
