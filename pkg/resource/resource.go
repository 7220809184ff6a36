// Package resource defines the unified resource and row model for inventa.
package resource

import "time"

// AttrForeignKey is the attribute a secondary resource uses to point at
// the ID of the primary resource it belongs to.
const AttrForeignKey = "foreign_key"

// Resource represents a cloud resource in unified format.
// Resources are fetched fresh per (account, region) visit and never mutated.
type Resource struct {
	ID        string            `json:"id" yaml:"id"`                 // Unique identifier (e.g., "i-abc123")
	Type      string            `json:"type" yaml:"type"`             // Resource type (e.g., "ec2_instance", "ssm_instance")
	Provider  string            `json:"provider" yaml:"provider"`     // Cloud provider (e.g., "aws")
	Region    string            `json:"region" yaml:"region"`         // Region (e.g., "us-east-1")
	Account   string            `json:"account" yaml:"account"`       // Account ID
	Name      string            `json:"name" yaml:"name"`             // Human-readable name
	Status    string            `json:"status" yaml:"status"`         // Free-form state reported by the service
	Labels    map[string]string `json:"labels" yaml:"labels"`         // Tags
	Attrs     map[string]string `json:"attrs" yaml:"attrs"`           // Provider-specific attributes
	CreatedAt time.Time         `json:"created_at" yaml:"created_at"` // Creation or last-observed time, used to pick the most recent match
	ScannedAt time.Time         `json:"scanned_at" yaml:"scanned_at"` // When this was listed
}

// ForeignKey returns the primary resource ID this resource references, if any.
func (r Resource) ForeignKey() string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[AttrForeignKey]
}

// Attr returns an attribute value or "" when unset.
func (r Resource) Attr(key string) string {
	if r.Attrs == nil {
		return ""
	}
	return r.Attrs[key]
}
