package assets

import "errors"

// Sentinel errors for asset loading.
var (
	ErrTemplateNotFound = errors.New("template not found")
	ErrInvalidAssetName = errors.New("invalid asset name")
	ErrInvalidBasePath  = errors.New("invalid asset base path")
	ErrAssetRead        = errors.New("failed to read asset")
	ErrPathTraversal    = errors.New("asset path escapes base directory")
)

// IsNotFound reports whether err is a not-found condition, as opposed to
// a validation or I/O failure.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrTemplateNotFound)
}
