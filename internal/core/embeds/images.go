package embeds

import (
	"context"
	"net/http"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"Threadmark/internal/core/posts"
)

var imageURLPattern = regexp.MustCompile(`(?i)^https?://.*/(.+?)\.(jpg|png|jpeg|gif|webm|mp4|pdf|bmp|webp|mp3|swf|m4a|ogg|flac)$`)

// Files of these types get no thumbnail; clients draw a placeholder.
var noThumbnailExtensions = []string{"webm", "pdf", "mp4", "mp3", "swf", "m4a", "ogg", "flac"}

// detectImage turns a direct media link into a spoilered inline image.
func detectImage(rawURL string) (posts.InlineImage, bool) {
	m := imageURLPattern.FindStringSubmatch(rawURL)
	// saucenao result links end in image extensions but are search pages
	if m == nil || strings.Contains(strings.ToLower(rawURL), "saucenao") {
		return posts.InlineImage{}, false
	}
	if _, err := url.Parse(rawURL); err != nil {
		return posts.InlineImage{}, false
	}

	ext := strings.ToLower(m[2])
	img := posts.InlineImage{
		URL:       rawURL,
		Filename:  m[1],
		Extension: ext,
		Spoiler:   true,
	}
	if !slices.Contains(noThumbnailExtensions, ext) {
		img.ThumbnailURL = rawURL
	}
	return img, true
}

// lookupSize fills img.Size from a HEAD request's Content-Length. Failures
// leave the size unknown and are otherwise ignored.
func (c *Coordinator) lookupSize(ctx context.Context, img *posts.InlineImage) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, img.URL, nil)
	if err != nil {
		return
	}
	resp, err := c.transport.Do(req)
	if err != nil {
		c.logger.Debug("[EMBED] Image size lookup failed", "url", img.URL, "error", err)
		return
	}
	_ = resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return
	}
	if size, err := strconv.ParseInt(resp.Header.Get("Content-Length"), 10, 64); err == nil && size > 0 {
		img.Size = size
	}
}
