package models

// PathCategory is the storage folder an upload is filed under.
// It is the single definition shared by the grant-issuing service and the upload client.
type PathCategory string

const (
	PathCategoryExecutives    PathCategory = "executives"
	PathCategoryGallery       PathCategory = "gallery"
	PathCategoryContent       PathCategory = "content"
	PathCategoryNews          PathCategory = "news"
	PathCategoryEvents        PathCategory = "events"
	PathCategoryPersonalities PathCategory = "personalities"
	PathCategoryBlogs         PathCategory = "blogs"
	PathCategoryAnnouncements PathCategory = "announcements"
)

// PathCategories lists every accepted upload category
var PathCategories = []PathCategory{
	PathCategoryExecutives,
	PathCategoryGallery,
	PathCategoryContent,
	PathCategoryNews,
	PathCategoryEvents,
	PathCategoryPersonalities,
	PathCategoryBlogs,
	PathCategoryAnnouncements,
}

// IsValid reports whether the category belongs to the closed set
func (c PathCategory) IsValid() bool {
	switch c {
	case PathCategoryExecutives,
		PathCategoryGallery,
		PathCategoryContent,
		PathCategoryNews,
		PathCategoryEvents,
		PathCategoryPersonalities,
		PathCategoryBlogs,
		PathCategoryAnnouncements:
		return true
	default:
		return false
	}
}
