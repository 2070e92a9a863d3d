package domain

import "strings"

// Asset is a binary attachment. Filename is only used to recover an extension.
type Asset struct {
	Data        []byte
	ContentType string
	Filename    string
}

// IsImage reports whether the declared MIME type is an image type.
func (a Asset) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(a.ContentType), "image/")
}

// Manual is a document attachment whose display name is edited independently
// of the underlying file name.
type Manual struct {
	Asset       Asset
	DisplayName string
}

// MediaBundle holds all attachments associated with one ProductRecord.
type MediaBundle struct {
	Logo    *Asset
	Cover   *Asset
	Gallery []Asset
	Videos  []Asset
	Manuals []Manual
}

// Empty reports whether the bundle carries no attachments at all.
func (m MediaBundle) Empty() bool {
	return m.Logo == nil && m.Cover == nil &&
		len(m.Gallery) == 0 && len(m.Videos) == 0 && len(m.Manuals) == 0
}
