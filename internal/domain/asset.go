package domain

import (
	"path"
	"time"
)

// AssetKind tells whether an image was supplied by the client or produced by
// the model.
type AssetKind string

const (
	AssetKindInput  AssetKind = "input"
	AssetKindOutput AssetKind = "output"
)

// ParseAssetKind returns the kind named by s and whether it is known.
func ParseAssetKind(s string) (AssetKind, bool) {
	switch AssetKind(s) {
	case AssetKindInput, AssetKindOutput:
		return AssetKind(s), true
	default:
		return "", false
	}
}

// FilesRoute is the URL prefix under which stored files are served.
const FilesRoute = "/files/"

// ImageAsset is a stored image file belonging to a job. Assets are never
// mutated after creation.
type ImageAsset struct {
	ID        int64     `json:"id"`
	JobID     int64     `json:"job_id"`
	Kind      AssetKind `json:"kind"`
	FileName  string    `json:"file_name"`
	FilePath  string    `json:"file_path"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
}

// FileURLFor returns the public URL of a stored relative path.
func FileURLFor(relPath string) string {
	return FilesRoute + path.Clean("/" + relPath)[1:]
}
