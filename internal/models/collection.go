package models

import (
	"slices"
	"strings"
)

// Collection names a document collection
type Collection string

const (
	CollectionExecutives    Collection = "executives"
	CollectionGallery       Collection = "gallery"
	CollectionAnnouncements Collection = "announcements"
	CollectionBlogs         Collection = "blogs"
	CollectionNewsEvents    Collection = "news_events"
	CollectionPersonalities Collection = "personality_of_week"
	CollectionPositions     Collection = "positions"
	CollectionContentBlocks Collection = "content_blocks"
)

// Flag field names as exposed in JSON
const (
	FlagPublished = "published"
	FlagOpen      = "open"
	FlagActive    = "is_active"
)

// CollectionSpec describes how a collection behaves in the publication lifecycle
type CollectionSpec struct {
	Name Collection
	// FlagField is the name of the visibility flag ("published" or "open"), empty when the collection has none
	FlagField string
	// DefaultFlag is used when a create request does not set the flag
	DefaultFlag bool
	// Ordered collections get an appended display_order on create
	Ordered bool
	// SortField lists an unordered collection by this text field ascending instead of newest first
	SortField string
	// Exclusive collections have at most one active record
	Exclusive bool
	// Notify collections trigger a push notification on create
	Notify bool
	// Required lists fields that must be non-empty strings
	Required []string
	// MediaFields lists fields holding public media URLs (string or list of strings)
	MediaFields []string
	// Enums restricts string fields to a closed set of values
	Enums map[string][]string
}

var collectionSpecs = map[Collection]*CollectionSpec{
	CollectionExecutives: {
		Name:        CollectionExecutives,
		FlagField:   FlagPublished,
		DefaultFlag: true,
		Ordered:     true,
		Required:    []string{"name", "position"},
		MediaFields: []string{"photo_url"},
	},
	CollectionGallery: {
		Name:        CollectionGallery,
		FlagField:   FlagPublished,
		DefaultFlag: true,
		Required:    []string{"title", "media_url"},
		MediaFields: []string{"media_url"},
		Enums:       map[string][]string{"media_type": {"image", "video"}},
	},
	CollectionAnnouncements: {
		Name:        CollectionAnnouncements,
		FlagField:   FlagPublished,
		DefaultFlag: true,
		Notify:      true,
		Required:    []string{"title", "body"},
		MediaFields: []string{"mediaUrl"},
		Enums:       map[string][]string{"mediaType": {"image", "video"}},
	},
	CollectionBlogs: {
		Name:        CollectionBlogs,
		FlagField:   FlagPublished,
		Required:    []string{"title", "author", "content"},
		MediaFields: []string{"imageUrl"},
	},
	CollectionNewsEvents: {
		Name:        CollectionNewsEvents,
		FlagField:   FlagPublished,
		Notify:      true,
		Required:    []string{"title", "category", "content"},
		MediaFields: []string{"imageUrl"},
		Enums:       map[string][]string{"category": {"news", "event"}},
	},
	CollectionPersonalities: {
		Name:        CollectionPersonalities,
		Exclusive:   true,
		Required:    []string{"name"},
		MediaFields: []string{"media_url", "media_urls"},
		Enums:       map[string][]string{"media_type": {"image", "video"}},
	},
	CollectionPositions: {
		Name:      CollectionPositions,
		FlagField: FlagOpen,
		SortField: "title",
		Required:  []string{"title"},
	},
	CollectionContentBlocks: {
		Name:        CollectionContentBlocks,
		FlagField:   FlagPublished,
		DefaultFlag: true,
		Required:    []string{"page", "key", "content"},
	},
}

// LookupCollection returns the spec of a collection by name
func LookupCollection(name string) (*CollectionSpec, error) {
	spec, ok := collectionSpecs[Collection(name)]
	if !ok {
		return nil, ErrUnknownCollection
	}
	return spec, nil
}

// MustCollection returns the spec of a known collection and panics otherwise
func MustCollection(c Collection) *CollectionSpec {
	spec, ok := collectionSpecs[c]
	if !ok {
		panic("unknown collection " + string(c))
	}
	return spec
}

// reservedFields are managed by the server and never stored inside document data
var reservedFields = []string{"id", "createdAt", "updatedAt", "display_order", FlagPublished, FlagOpen, FlagActive}

// Validate checks a field set against the collection rules
func (s *CollectionSpec) Validate(fields map[string]any) error {
	for _, name := range s.Required {
		v, ok := fields[name].(string)
		if !ok || strings.TrimSpace(v) == "" {
			return InvalidRecordError("%s is required", name)
		}
	}
	for name, allowed := range s.Enums {
		raw, present := fields[name]
		if !present || raw == nil {
			continue
		}
		v, ok := raw.(string)
		if !ok || !slices.Contains(allowed, v) {
			return InvalidRecordError("%s must be one of %s", name, strings.Join(allowed, ", "))
		}
	}
	for _, name := range s.MediaFields {
		raw, present := fields[name]
		if !present || raw == nil {
			continue
		}
		switch v := raw.(type) {
		case string:
		case []any:
			for _, item := range v {
				if _, ok := item.(string); !ok {
					return InvalidRecordError("%s must contain only URLs", name)
				}
			}
		default:
			return InvalidRecordError("%s must be a URL or a list of URLs", name)
		}
	}
	return nil
}

// MediaURLs collects every non-empty media URL referenced by the fields
func (s *CollectionSpec) MediaURLs(fields map[string]any) []string {
	var urls []string
	for _, name := range s.MediaFields {
		switch v := fields[name].(type) {
		case string:
			if v != "" {
				urls = append(urls, v)
			}
		case []any:
			for _, item := range v {
				if u, ok := item.(string); ok && u != "" {
					urls = append(urls, u)
				}
			}
		case []string:
			for _, u := range v {
				if u != "" {
					urls = append(urls, u)
				}
			}
		}
	}
	return urls
}

// StripReserved removes server-managed keys from client supplied fields
func StripReserved(fields map[string]any) map[string]any {
	clean := make(map[string]any, len(fields))
	for k, v := range fields {
		if slices.Contains(reservedFields, k) {
			continue
		}
		clean[k] = v
	}
	return clean
}
