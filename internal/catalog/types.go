// Package catalog defines the directory's canonical types and the
// normalization, classification and filtering rules applied to listings
// fetched from upstream sources.
package catalog

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"time"
)

// Ownership says who may write a directory row. Sync only ever touches
// auto-managed rows; manually curated rows are immutable to it.
type Ownership string

// Ownership values.
const (
	OwnershipManual Ownership = "manual"
	OwnershipAuto   Ownership = "auto"
)

// Lifecycle is the stale-lifecycle state of an auto-managed row.
type Lifecycle string

// Lifecycle values.
const (
	LifecycleActive         Lifecycle = "active"
	LifecycleStaleCandidate Lifecycle = "stale_candidate"
	LifecycleRejected       Lifecycle = "rejected"
)

// Status is the directory-facing status of a row.
type Status string

// Status values.
const (
	StatusActive   Status = "active"
	StatusRejected Status = "rejected"
)

// AuthType classifies how a server authenticates its clients.
type AuthType string

// AuthType values.
const (
	AuthNone   AuthType = "none"
	AuthAPIKey AuthType = "api_key"
	AuthOAuth  AuthType = "oauth"
)

// VerificationLevel reflects how trustworthy the source of a listing is.
type VerificationLevel string

// VerificationLevel values.
const (
	VerificationVerified   VerificationLevel = "verified"
	VerificationCommunity  VerificationLevel = "community"
	VerificationUnverified VerificationLevel = "unverified"
)

// Candidate is a normalized, deduped listing ready for persistence. It is
// created per run and discarded after reconciliation.
type Candidate struct {
	Slug              string            `json:"slug"`
	Name              string            `json:"name"`
	Description       string            `json:"description"`
	ServerURL         string            `json:"serverUrl"`
	RepoURL           string            `json:"repoUrl"`
	Category          string            `json:"category"`
	AuthType          AuthType          `json:"authType"`
	Tags              []string          `json:"tags"`
	Maintainer        string            `json:"maintainer"`
	Status            Status            `json:"status"`
	VerificationLevel VerificationLevel `json:"verificationLevel"`
	Source            string            `json:"source"`
	Tools             []string          `json:"tools,omitempty"`
}

// TextBlob returns the lowercased text the moderation and quality filters
// match against.
func (c *Candidate) TextBlob() string {
	return strings.ToLower(strings.Join([]string{c.Slug, c.Name, c.Description, c.RepoURL}, " "))
}

// ContentHash returns a stable sha256 hash over the candidate's persisted
// fields, used to short-circuit writes for unchanged rows.
func (c *Candidate) ContentHash() string {
	// json.Marshal over the struct is deterministic: field order is fixed.
	data, err := json.Marshal(c)
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// ServerRecord is the persisted canonical directory row. Health fields are
// owned by the external health prober and are never written by sync.
type ServerRecord struct {
	Slug              string
	Name              string
	Description       string
	ServerURL         string
	RepoURL           string
	Category          string
	AuthType          AuthType
	Tags              []string
	Maintainer        string
	Status            Status
	VerificationLevel VerificationLevel
	Source            string
	Tools             []string

	Ownership   Ownership
	Lifecycle   Lifecycle
	ContentHash string

	HealthStatus    string
	HealthCheckedAt *time.Time
	HealthError     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// RecordFromCandidate builds the auto-managed, fully active row a candidate
// upserts to. Writing LifecycleActive is what implicitly restores a
// reappearing stale row.
func RecordFromCandidate(c *Candidate) ServerRecord {
	return ServerRecord{
		Slug:              c.Slug,
		Name:              c.Name,
		Description:       c.Description,
		ServerURL:         c.ServerURL,
		RepoURL:           c.RepoURL,
		Category:          c.Category,
		AuthType:          c.AuthType,
		Tags:              c.Tags,
		Maintainer:        c.Maintainer,
		Status:            c.Status,
		VerificationLevel: c.VerificationLevel,
		Source:            c.Source,
		Tools:             c.Tools,
		Ownership:         OwnershipAuto,
		Lifecycle:         LifecycleActive,
		ContentHash:       c.ContentHash(),
	}
}
