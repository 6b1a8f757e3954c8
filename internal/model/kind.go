package model

import "strings"

// Kind is the category tag of a discovered image.
// The wire value is kept as a plain string so that tags unknown to this
// version still round-trip; anything that is not one of the special kinds
// is placed as KindOrdinary.
type Kind string

const (
	// KindLogo marks images whose URL mentions a logo.
	KindLogo Kind = "LOGO"

	// KindGIF marks animated or static GIF images.
	KindGIF Kind = "GIF"

	// KindFavicon marks site icons referenced by <link rel="icon"> or
	// whose URL mentions a favicon.
	KindFavicon Kind = "FAVICON"

	// KindOrdinary is every other image. The crawl service historically
	// emits "IMAGE" for these, which ParseKind also maps here.
	KindOrdinary Kind = "ORDINARY"
)

// Special bucket names. These group keys are reserved: items of the
// matching kind are redirected into them regardless of their origin.
const (
	BucketLogos    = "logos"
	BucketGIFs     = "gifs"
	BucketFavicons = "favicons"
)

// specialBuckets lists the buckets in display order.
var specialBuckets = []string{BucketLogos, BucketGIFs, BucketFavicons}

// ParseKind maps a wire tag to a Kind. Matching is case-insensitive and
// ignores surrounding whitespace. Unknown tags map to KindOrdinary.
func ParseKind(tag string) Kind {
	switch Kind(strings.ToUpper(strings.TrimSpace(tag))) {
	case KindLogo:
		return KindLogo
	case KindGIF:
		return KindGIF
	case KindFavicon:
		return KindFavicon
	default:
		return KindOrdinary
	}
}

// IsSpecial reports whether items of this kind belong in a special bucket.
func (k Kind) IsSpecial() bool {
	_, ok := k.Bucket()
	return ok
}

// Bucket returns the special bucket for the kind.
// The second return value is false for ordinary kinds.
func (k Kind) Bucket() (string, bool) {
	switch k {
	case KindLogo:
		return BucketLogos, true
	case KindGIF:
		return BucketGIFs, true
	case KindFavicon:
		return BucketFavicons, true
	default:
		return "", false
	}
}

// String returns the wire tag.
func (k Kind) String() string {
	return string(k)
}

// SpecialBuckets returns the reserved bucket names in display order.
func SpecialBuckets() []string {
	out := make([]string, len(specialBuckets))
	copy(out, specialBuckets)
	return out
}

// IsSpecialBucket reports whether key is one of the reserved bucket names.
func IsSpecialBucket(key string) bool {
	for _, b := range specialBuckets {
		if b == key {
			return true
		}
	}
	return false
}

// BucketKind returns the kind collected by a special bucket.
func BucketKind(key string) (Kind, bool) {
	switch key {
	case BucketLogos:
		return KindLogo, true
	case BucketGIFs:
		return KindGIF, true
	case BucketFavicons:
		return KindFavicon, true
	default:
		return "", false
	}
}

// BucketLabel returns the display label used as the level of a special bucket.
func BucketLabel(key string) string {
	switch key {
	case BucketLogos:
		return "Logos"
	case BucketGIFs:
		return "GIFs"
	case BucketFavicons:
		return "Favicons"
	default:
		return key
	}
}

// KindFromURL classifies an image by its URL the way the crawl service does.
// Priority is favicon, then logo, then ".gif"; matching is case-insensitive.
func KindFromURL(imageURL string) Kind {
	lower := strings.ToLower(imageURL)
	switch {
	case strings.Contains(lower, "favicon"):
		return KindFavicon
	case strings.Contains(lower, "logo"):
		return KindLogo
	case strings.Contains(lower, ".gif"):
		return KindGIF
	default:
		return KindOrdinary
	}
}
