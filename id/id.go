// Package id defines the identifiers stepflow hands out.
//
// Every identifier is a TypeID: a short entity prefix followed by a
// UUIDv7 suffix, e.g. "wf_01h2xcejqtf2nbrexx3vqjhp41". Workflow run ids
// sort by creation time, which is what checkpoint stores rely on when
// they page through pending runs.
package id

import (
	"database/sql/driver"
	"errors"
	"fmt"

	"go.jetify.com/typeid/v2"
)

// Prefix is the entity tag in front of the underscore.
type Prefix string

const (
	PrefixWorkflowRun Prefix = "wf"
	PrefixCorrelation Prefix = "corr"
	PrefixCheckpoint  Prefix = "ckpt"
	PrefixAudit       Prefix = "audit"
)

var errEmpty = errors.New("empty string")

// ID is a prefixed TypeID. The zero value is Nil and is stored as NULL.
//
//nolint:recvcheck // UnmarshalText and Scan need pointer receivers.
type ID struct {
	tid typeid.TypeID
	set bool
}

// Nil is the zero ID.
var Nil ID

// New returns a fresh ID tagged with p. An invalid prefix is a programming
// error and panics.
func New(p Prefix) ID {
	tid, err := typeid.Generate(string(p))
	if err != nil {
		panic(fmt.Sprintf("id: generate %q: %v", p, err))
	}
	return ID{tid: tid, set: true}
}

func NewWorkflowRunID() ID { return New(PrefixWorkflowRun) }
func NewCorrelationID() ID { return New(PrefixCorrelation) }
func NewCheckpointID() ID  { return New(PrefixCheckpoint) }
func NewAuditID() ID       { return New(PrefixAudit) }

// Parse accepts an ID of any prefix. Callers may supply their own run ids,
// so stores load whatever was saved rather than insisting on "wf".
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse: %w", errEmpty)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{tid: tid, set: true}, nil
}

// ParseWorkflowRunID parses s and requires the "wf" prefix.
func ParseWorkflowRunID(s string) (ID, error) { return parseAs(s, PrefixWorkflowRun) }

// ParseCheckpointID parses s and requires the "ckpt" prefix.
func ParseCheckpointID(s string) (ID, error) { return parseAs(s, PrefixCheckpoint) }

func parseAs(s string, want Prefix) (ID, error) {
	v, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if got := v.Prefix(); got != want {
		return Nil, fmt.Errorf("id: %q has prefix %q, want %q", s, got, want)
	}
	return v, nil
}

func (i ID) String() string {
	if !i.set {
		return ""
	}
	return i.tid.String()
}

// Prefix returns the entity tag, or "" for Nil.
func (i ID) Prefix() Prefix {
	if !i.set {
		return ""
	}
	return Prefix(i.tid.Prefix())
}

func (i ID) IsNil() bool { return !i.set }

func (i ID) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

// UnmarshalText decodes empty input to Nil.
func (i *ID) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*i = Nil
		return nil
	}
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*i = v
	return nil
}

// Value stores Nil as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.set {
		return nil, nil //nolint:nilnil // NULL
	}
	return i.tid.String(), nil
}

// Scan reads TEXT or BYTEA columns; NULL and "" become Nil.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	}
	return fmt.Errorf("id: scan: unsupported type %T", src)
}
