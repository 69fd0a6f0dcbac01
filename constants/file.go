package constants

import "strings"

const (
	// MaxPDFBytes is the remote service limit for PDF input.
	MaxPDFBytes int64 = 80 << 20
	// MaxImageBytes is the remote service limit for image input.
	MaxImageBytes int64 = 450 << 20
)

// AllowedExtensions holds the receipt file extensions accepted for analysis.
var AllowedExtensions = map[string]struct{}{
	"jpg":  {},
	"jpeg": {},
	"png":  {},
	"pdf":  {},
	"tif":  {},
	"tiff": {},
	"bmp":  {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
}

// IsAllowedExt reports whether ext (with or without the dot) is accepted.
func IsAllowedExt(ext string) bool {
	_, ok := AllowedExtensions[NormalizeExt(ext)]
	return ok
}

// MaxSizeFor returns the upload size limit for the extension.
func MaxSizeFor(ext string) int64 {
	if NormalizeExt(ext) == "pdf" {
		return MaxPDFBytes
	}
	return MaxImageBytes
}

// ContentTypeFor returns the MIME type sent to the analysis service.
func ContentTypeFor(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "tif", "tiff":
		return "image/tiff"
	case "bmp":
		return "image/bmp"
	default:
		return "application/octet-stream"
	}
}
