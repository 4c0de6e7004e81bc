package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MetadataVersion is written into every metadata object the engine produces.
const MetadataVersion = 1

const (
	metaReferenceID = "referenceId"
	metaUserID      = "userId"
	metaPlan        = "plan"
	metaProduct     = "product"
	metaIsTrial     = "isTrial"
	metaTrialEnd    = "trialEnd"
	metaVersion     = "metadataVersion"
)

var reservedMetadataKeys = map[string]struct{}{
	metaReferenceID: {}, metaUserID: {}, metaPlan: {}, metaProduct: {},
	metaIsTrial: {}, metaTrialEnd: {}, metaVersion: {},
}

// Metadata is the structured object attached to a provider transaction. The
// engine-owned fields always override caller-supplied keys of the same name.
type Metadata struct {
	ReferenceID string
	UserID      string
	Plan        string
	Product     string
	IsTrial     bool
	TrialEnd    *time.Time
	Version     int
	Extra       map[string]any
}

// NewMetadata copies caller-supplied extras, dropping engine-owned keys.
func NewMetadata(extra map[string]any) Metadata {
	m := Metadata{Version: MetadataVersion}
	for k, v := range extra {
		if _, reserved := reservedMetadataKeys[k]; reserved {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]any, len(extra))
		}
		m.Extra[k] = v
	}
	return m
}

func (m Metadata) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(m.Extra)+len(reservedMetadataKeys))
	for k, v := range m.Extra {
		if _, reserved := reservedMetadataKeys[k]; reserved {
			continue
		}
		out[k] = v
	}
	if m.ReferenceID != "" {
		out[metaReferenceID] = m.ReferenceID
	}
	if m.UserID != "" {
		out[metaUserID] = m.UserID
	}
	if m.Plan != "" {
		out[metaPlan] = m.Plan
	}
	if m.Product != "" {
		out[metaProduct] = m.Product
	}
	if m.IsTrial {
		out[metaIsTrial] = true
	}
	if m.TrialEnd != nil {
		out[metaTrialEnd] = m.TrialEnd.UTC().Format(time.RFC3339)
	}
	version := m.Version
	if version == 0 {
		version = MetadataVersion
	}
	out[metaVersion] = version
	return json.Marshal(out)
}

// UnmarshalJSON accepts an object, a JSON string holding an object, an empty
// string or null. Provider payloads use all of them.
func (m *Metadata) UnmarshalJSON(b []byte) error {
	*m = Metadata{}
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || !strings.HasPrefix(s, "{") {
			return nil
		}
		b = []byte(s)
	}
	if b[0] != '{' {
		// numbers, arrays and booleans carry nothing usable
		return nil
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("decode metadata: %w", err)
	}
	for k, v := range raw {
		switch k {
		case metaReferenceID:
			m.ReferenceID = stringOf(v)
		case metaUserID:
			m.UserID = stringOf(v)
		case metaPlan:
			m.Plan = stringOf(v)
		case metaProduct:
			m.Product = stringOf(v)
		case metaIsTrial:
			m.IsTrial = boolOf(v)
		case metaTrialEnd:
			m.TrialEnd = timeOf(v)
		case metaVersion:
			if n, err := strconv.Atoi(stringOf(v)); err == nil {
				m.Version = n
			}
		default:
			if m.Extra == nil {
				m.Extra = make(map[string]any)
			}
			m.Extra[k] = v
		}
	}
	return nil
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}

func boolOf(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case string:
		b, _ := strconv.ParseBool(strings.TrimSpace(x))
		return b
	case json.Number:
		n, err := x.Int64()
		return err == nil && n != 0
	default:
		return false
	}
}

func timeOf(v any) *time.Time {
	switch x := v.(type) {
	case string:
		if x == "" {
			return nil
		}
		if t, err := time.Parse(time.RFC3339, x); err == nil {
			return &t
		}
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return unixOf(n)
		}
	case json.Number:
		if n, err := x.Int64(); err == nil {
			return unixOf(n)
		}
	}
	return nil
}

// unixOf accepts seconds or milliseconds since the epoch.
func unixOf(n int64) *time.Time {
	if n <= 0 {
		return nil
	}
	var t time.Time
	if n > 1e12 {
		t = time.UnixMilli(n).UTC()
	} else {
		t = time.Unix(n, 0).UTC()
	}
	return &t
}
