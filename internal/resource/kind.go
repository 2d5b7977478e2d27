package resource

import (
	"net/url"
	"regexp"
	"slices"

	"codeberg.org/mutker/rumcollect/internal/performance"
)

type Kind string

const (
	KindDocument Kind = "document"
	KindXHR      Kind = "xhr"
	KindFetch    Kind = "fetch"
	KindBeacon   Kind = "beacon"
	KindCSS      Kind = "css"
	KindJS       Kind = "js"
	KindImage    Kind = "image"
	KindFont     Kind = "font"
	KindMedia    Kind = "media"
	KindOther    Kind = "other"
)

var (
	cssPath   = regexp.MustCompile(`(?i)\.css$`)
	jsPath    = regexp.MustCompile(`(?i)\.js$`)
	imagePath = regexp.MustCompile(`(?i)\.(gif|jpg|jpeg|tiff|png|svg|ico)$`)
	fontPath  = regexp.MustCompile(`(?i)\.(woff|eot|woff2|ttf)$`)
	mediaPath = regexp.MustCompile(`(?i)\.(mp4|webm)$`)

	dataURL = regexp.MustCompile(`^data:[^;,]*(;base64)?`)
)

// Rules are checked in order; the first one that applies wins.
var kindRules = []struct {
	kind    Kind
	matches func(initiator, path string) bool
}{
	{KindDocument, func(i, _ string) bool { return i == "navigation" }},
	{KindXHR, func(i, _ string) bool { return i == "xmlhttprequest" }},
	{KindFetch, func(i, _ string) bool { return i == "fetch" }},
	{KindBeacon, func(i, _ string) bool { return i == "beacon" }},
	{KindCSS, func(_, p string) bool { return cssPath.MatchString(p) }},
	{KindJS, func(_, p string) bool { return jsPath.MatchString(p) }},
	{KindImage, func(i, p string) bool {
		return slices.Contains([]string{"image", "img", "icon"}, i) || imagePath.MatchString(p)
	}},
	{KindFont, func(_, p string) bool { return fontPath.MatchString(p) }},
	{KindMedia, func(i, p string) bool {
		return slices.Contains([]string{"audio", "video"}, i) || mediaPath.MatchString(p)
	}},
}

// ComputeKind classifies a resource by initiator type, then by the
// extension of its URL path.
func ComputeKind(entry *performance.ResourceTiming) Kind {
	u, err := url.Parse(entry.Name)
	if err != nil {
		return KindOther
	}

	for _, rule := range kindRules {
		if rule.matches(entry.InitiatorType, u.Path) {
			return rule.kind
		}
	}
	return KindOther
}

// IsRequestKind reports whether entry was initiated by fetch or XHR. Those
// resources are reported through request completion instead.
func IsRequestKind(entry *performance.ResourceTiming) bool {
	return entry.InitiatorType == "xmlhttprequest" || entry.InitiatorType == "fetch"
}

// FindDataURLAndTruncate returns the "data:<mime>[;base64]" prefix of a data
// URL, dropping the payload.
func FindDataURLAndTruncate(rawURL string) (string, bool) {
	prefix := dataURL.FindString(rawURL)
	if prefix == "" {
		return "", false
	}
	return prefix, true
}

// SanitizeURL truncates data URLs and leaves every other URL untouched.
func SanitizeURL(rawURL string) string {
	if prefix, ok := FindDataURLAndTruncate(rawURL); ok {
		return prefix
	}
	return rawURL
}
