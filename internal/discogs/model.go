// Package discogs provides an HTTP client for the Discogs collection API
package discogs

import (
	"fmt"
	"time"
)

// APIError represents an error response from the Discogs API
type APIError struct {
	StatusCode int           `json:"status_code"`
	Message    string        `json:"message"`
	WaitHint   time.Duration `json:"-"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("discogs API error %d: %s", e.StatusCode, e.Message)
}

// RateLimited reports whether the error is a rate-limit rejection
func (e *APIError) RateLimited() bool {
	return e.StatusCode == 429
}

// RetryAfter returns the server-provided wait hint, zero when absent
func (e *APIError) RetryAfter() time.Duration {
	return e.WaitHint
}

// Pagination holds the paging metadata Discogs returns with every listing
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// Artist is a credited artist on a release
type Artist struct {
	Name string `json:"name"`
}

// Label is a label/catalog-number pair on a release
type Label struct {
	Name  string `json:"name"`
	CatNo string `json:"catno"`
}

// Format describes one physical format of a release. Descriptions carry
// descriptors such as `12"`, `LP` or `Shape`, and Text carries free-form
// detail such as the pressing colour.
type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Text         string   `json:"text,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// Release holds the descriptive metadata of a Discogs release
type Release struct {
	ID         int64    `json:"id"`
	Title      string   `json:"title"`
	Year       int      `json:"year"`
	Artists    []Artist `json:"artists,omitempty"`
	Labels     []Label  `json:"labels,omitempty"`
	Genres     []string `json:"genres,omitempty"`
	Styles     []string `json:"styles,omitempty"`
	Formats    []Format `json:"formats,omitempty"`
	CoverImage string   `json:"cover_image,omitempty"`
	Thumb      string   `json:"thumb,omitempty"`
}

// CollectionItem is one entry of a collection folder listing. The listing
// embeds the release metadata under basic_information.
type CollectionItem struct {
	InstanceID int64   `json:"instance_id"`
	BasicInfo  Release `json:"basic_information"`
}

// CollectionResponse is a single page of a collection folder listing
type CollectionResponse struct {
	Pagination Pagination       `json:"pagination"`
	Releases   []CollectionItem `json:"releases"`
}

// AddStatus is the tri-state outcome of an add-to-collection call
type AddStatus string

const (
	// StatusAdded means the release was newly added to the collection
	StatusAdded AddStatus = "added"
	// StatusAlreadyPresent means the collection already contained the
	// release; callers treat this the same as a successful add
	StatusAlreadyPresent AddStatus = "already_present"
)

// AddResult is the response of an add-to-collection call
type AddResult struct {
	ReleaseID  int64     `json:"release_id"`
	InstanceID int64     `json:"instance_id,omitempty"`
	Status     AddStatus `json:"status"`
}

// PrimaryArtist returns the first credited artist name
func (r *Release) PrimaryArtist() string {
	if len(r.Artists) == 0 {
		return ""
	}
	return r.Artists[0].Name
}

// PrimaryLabel returns the first label and catalog number
func (r *Release) PrimaryLabel() (name, catNo string) {
	if len(r.Labels) == 0 {
		return "", ""
	}
	return r.Labels[0].Name, r.Labels[0].CatNo
}
