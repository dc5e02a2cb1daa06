package models

import (
	"encoding/json"
	"time"
)

// ContentRecord is one document of a content collection.
// Domain fields live in Fields, the lifecycle columns are kept apart so they can be indexed.
type ContentRecord struct {
	ID           string
	Collection   Collection
	Fields       map[string]any
	Published    bool
	DisplayOrder *int
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// MarshalJSON flattens the record into the document shape the site reads:
// domain fields plus id, the collection's flag under its own name, and timestamps
func (r ContentRecord) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Fields)+5)
	for k, v := range r.Fields {
		out[k] = v
	}
	out["id"] = r.ID
	out["createdAt"] = r.CreatedAt
	out["updatedAt"] = r.UpdatedAt

	if spec, ok := collectionSpecs[r.Collection]; ok {
		if spec.FlagField != "" {
			out[spec.FlagField] = r.Published
		}
		if spec.Ordered && r.DisplayOrder != nil {
			out["display_order"] = *r.DisplayOrder
		}
		if spec.Exclusive {
			out[FlagActive] = r.IsActive
		}
	}

	return json.Marshal(out)
}

// RecordInput is a decoded create or update request for any collection
type RecordInput struct {
	Fields map[string]any
	// Flag is the value of the collection's visibility flag, nil when not sent
	Flag *bool
	// Active is the requested is_active value, nil when not sent
	Active *bool
}

// ParseRecordInput splits a raw JSON object into domain fields and lifecycle flags
func ParseRecordInput(spec *CollectionSpec, raw map[string]any) (*RecordInput, error) {
	in := &RecordInput{Fields: StripReserved(raw)}

	if spec.FlagField != "" {
		if v, present := raw[spec.FlagField]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, InvalidRecordError("%s must be a boolean", spec.FlagField)
			}
			in.Flag = &b
		}
	}
	if spec.Exclusive {
		if v, present := raw[FlagActive]; present {
			b, ok := v.(bool)
			if !ok {
				return nil, InvalidRecordError("%s must be a boolean", FlagActive)
			}
			in.Active = &b
		}
	}

	if err := spec.Validate(in.Fields); err != nil {
		return nil, err
	}
	return in, nil
}

// FlagUpdate is the body of the publication and activation toggles
type FlagUpdate struct {
	Value *bool `json:"value"`
}
