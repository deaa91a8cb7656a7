package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// CompanyContext is one saved pitch profile for the user's own company.
// The company name doubles as the record's key within a workspace.
type CompanyContext struct {
	CompanyName string    `json:"company_name"`
	CompanyInfo string    `json:"company_info"`
	Created     time.Time `json:"created"`
	LastUpdated time.Time `json:"last_updated"`
}

// ContextCollection is every context saved in one workspace, persisted as a
// single unit. On disk it is a JSON object mapping context name to record;
// iteration order is the order records were first saved, so marshalling is
// custom to keep that order through round trips.
type ContextCollection struct {
	records []CompanyContext
}

// Get returns the context with the given name, or nil if absent.
func (c *ContextCollection) Get(name string) *CompanyContext {
	for i := range c.records {
		if c.records[i].CompanyName == name {
			ctx := c.records[i]
			return &ctx
		}
	}
	return nil
}

// Names returns all context names in persisted order.
func (c *ContextCollection) Names() []string {
	names := make([]string, 0, len(c.records))
	for i := range c.records {
		names = append(names, c.records[i].CompanyName)
	}
	return names
}

// Len returns the number of stored contexts.
func (c *ContextCollection) Len() int {
	return len(c.records)
}

// Upsert replaces the record with the same name in place, or appends it.
func (c *ContextCollection) Upsert(ctx CompanyContext) {
	for i := range c.records {
		if c.records[i].CompanyName == ctx.CompanyName {
			c.records[i] = ctx
			return
		}
	}
	c.records = append(c.records, ctx)
}

// Remove deletes the record with the given name. Returns true if it existed.
func (c *ContextCollection) Remove(name string) bool {
	for i := range c.records {
		if c.records[i].CompanyName == name {
			c.records = append(c.records[:i], c.records[i+1:]...)
			return true
		}
	}
	return false
}

// MarshalJSON writes the collection as a name-to-record object, preserving
// insertion order.
func (c ContextCollection) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rec := range c.records {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rec.CompanyName)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(rec)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a name-to-record object, keeping keys in document
// order rather than decoding into an unordered map.
func (c *ContextCollection) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	// Opening brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	var records []CompanyContext
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, _ := keyTok.(string)

		var rec CompanyContext
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		if rec.CompanyName == "" {
			rec.CompanyName = name
		}
		records = append(records, rec)
	}

	// Closing brace
	if _, err := dec.Token(); err != nil {
		return err
	}

	c.records = records
	return nil
}

// SaveContextRequest is the body for the context save endpoint.
type SaveContextRequest struct {
	CompanyName string `json:"company_name"`
	CompanyInfo string `json:"company_info"`
}

// ImportContextRequest is the body for the context import endpoint.
type ImportContextRequest struct {
	Data string `json:"data"`           // serialized record, as produced by export
	Name string `json:"name,omitempty"` // optional explicit context name
}
