package models

// ActivePointer is the single source of truth for the active record of an exclusive collection
type ActivePointer struct {
	Collection Collection
	RecordID   *string
	Version    int64
}

// Holds reports whether the pointer currently designates the record
func (p *ActivePointer) Holds(id string) bool {
	return p != nil && p.RecordID != nil && *p.RecordID == id
}
