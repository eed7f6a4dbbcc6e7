package embeds

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"Threadmark/internal/core/posts"
)

// Endpoints are the upstream API locations used by the built-in embedders.
type Endpoints struct {
	YouTubeOEmbed    string
	YouTubeData      string
	StreamableAPI    string
	VocarooMedia     string
	ClypAPI          string
	SoundCloudOEmbed string
	VimeoOEmbed      string
}

// DefaultEndpoints returns the production API endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		YouTubeOEmbed:    "https://www.youtube.com/oembed",
		YouTubeData:      "https://www.googleapis.com/youtube/v3/videos",
		StreamableAPI:    "https://api.streamable.com/videos/",
		VocarooMedia:     "https://media1.vocaroo.com/mp3/",
		ClypAPI:          "https://api.clyp.it/",
		SoundCloudOEmbed: "https://soundcloud.com/oembed",
		VimeoOEmbed:      "https://vimeo.com/api/oembed.json",
	}
}

// ProviderOptions configures the built-in embedders.
type ProviderOptions struct {
	Endpoints Endpoints

	// YouTubeAPIKey enables the YouTube duration lookup.
	YouTubeAPIKey string
}

// DefaultEmbedders returns the built-in embedders in registry order.
func DefaultEmbedders(opts ProviderOptions) []Embedder {
	ep := opts.Endpoints
	if ep == (Endpoints{}) {
		ep = DefaultEndpoints()
	}
	return []Embedder{
		YouTube(ep, opts.YouTubeAPIKey),
		Streamable(ep),
		Vocaroo(ep),
		Clyp(ep),
		SoundCloud(ep),
		Bandcamp(),
		Vimeo(ep),
		Pixiv(),
	}
}

// oEmbedResponse represents a standard oEmbed response
type oEmbedResponse struct {
	ThumbnailURL string  `json:"thumbnail_url"`
	Title        string  `json:"title"`
	AuthorName   string  `json:"author_name"`
	ProviderName string  `json:"provider_name"`
	Type         string  `json:"type"`
	Duration     float64 `json:"duration"`
	Width        int     `json:"width"`
	Height       int     `json:"height"`
}

func newGet(ctx context.Context, rawURL string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/html;q=0.9")
	return req, nil
}

func oEmbedRequest(ctx context.Context, endpoint, target string) (*http.Request, error) {
	return newGet(ctx, endpoint+"?format=json&url="+url.QueryEscape(target))
}

func decodeOEmbed(resp *Response) (*oEmbedResponse, error) {
	var oembed oEmbedResponse
	if err := json.Unmarshal(resp.Body, &oembed); err != nil {
		return nil, fmt.Errorf("failed to parse oEmbed response: %w", err)
	}
	oembed.Title = strings.TrimSpace(oembed.Title)
	return &oembed, nil
}

// absoluteURL turns the protocol-relative URLs some APIs return into https.
func absoluteURL(s string) string {
	if strings.HasPrefix(s, "//") {
		return "https:" + s
	}
	return s
}

var youtubePattern = regexp.MustCompile(`^https?://(?:youtu\.be/|[\w.]*youtube[\w.]*/.*?(?:v=|\bembed/|\bv/|\bshorts/))([\w-]{11})\S*$`)

// YouTube titles videos through oEmbed. With an API key, the duration
// comes from a second request to the Data API.
func YouTube(ep Endpoints, apiKey string) *Definition {
	d := &Definition{
		ID:       "youtube",
		IconName: "youtube",
		Pattern:  youtubePattern,
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return oEmbedRequest(ctx, ep.YouTubeOEmbed, "https://www.youtube.com/watch?v="+m[1])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			oembed, err := decodeOEmbed(resp)
			if err != nil {
				return nil, err
			}
			return &Result{Title: oembed.Title}, nil
		},
	}
	if apiKey == "" {
		return d
	}
	d.Duration = &DurationLookup{
		Request: func(ctx context.Context, m []string, _ *Result) (*http.Request, error) {
			q := url.Values{}
			q.Set("part", "contentDetails")
			q.Set("id", m[1])
			q.Set("fields", "items(contentDetails(duration))")
			q.Set("key", apiKey)
			return newGet(ctx, ep.YouTubeData+"?"+q.Encode())
		},
		Decode: func(resp *Response) (string, error) {
			var body struct {
				Items []struct {
					ContentDetails struct {
						Duration string `json:"duration"`
					} `json:"contentDetails"`
				} `json:"items"`
			}
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				return "", fmt.Errorf("failed to parse YouTube video details: %w", err)
			}
			if len(body.Items) == 0 || body.Items[0].ContentDetails.Duration == "" {
				return "", nil
			}
			raw := body.Items[0].ContentDetails.Duration
			// Live streams report P0D
			if raw == "P0D" {
				return "[LIVE]", nil
			}
			dur, err := parseISO8601Duration(raw)
			if err != nil {
				return "", err
			}
			return formatDuration(dur), nil
		},
	}
	return d
}

// Streamable reads the video API, which carries the duration and the mp4.
func Streamable(ep Endpoints) *Definition {
	return &Definition{
		ID:       "streamable",
		IconName: "streamable",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.)?streamable\.com/(\w+)/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return newGet(ctx, ep.StreamableAPI+m[1])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			var body struct {
				Title        string `json:"title"`
				ThumbnailURL string `json:"thumbnail_url"`
				Files        struct {
					MP4 struct {
						URL      string  `json:"url"`
						Duration float64 `json:"duration"`
					} `json:"mp4"`
				} `json:"files"`
			}
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				return nil, fmt.Errorf("failed to parse Streamable response: %w", err)
			}
			title := strings.TrimSpace(body.Title)
			if title == "" {
				title = "Streamable " + m[1]
			}
			res := &Result{Title: title, Duration: Duration(formatSeconds(body.Files.MP4.Duration))}
			if body.Files.MP4.URL != "" {
				res.ExtraImage = &posts.InlineImage{
					URL:          absoluteURL(body.Files.MP4.URL),
					ThumbnailURL: absoluteURL(body.ThumbnailURL),
					Filename:     m[1],
					Extension:    "mp4",
				}
			}
			return res, nil
		},
	}
}

// Vocaroo needs no request: the recording's mp3 location derives from its id.
func Vocaroo(ep Endpoints) *Definition {
	return &Definition{
		ID:       "vocaroo",
		IconName: "vocaroo",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.)?(?:voca\.ro|vocaroo\.com)/(\w{10,12})/?$`),
		Decode: func(m []string, _ *Response) (*Result, error) {
			return &Result{
				Title:    "Vocaroo attachment",
				Duration: NoDuration(),
				ExtraImage: &posts.InlineImage{
					URL:       ep.VocarooMedia + m[1],
					Filename:  m[1],
					Extension: "mp3",
				},
			}, nil
		},
	}
}

// Clyp reads the clip API for title, duration and the mp3.
func Clyp(ep Endpoints) *Definition {
	return &Definition{
		ID:       "clyp",
		IconName: "clyp",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.)?clyp\.it/(\w{8})/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return newGet(ctx, ep.ClypAPI+m[1])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			var body struct {
				Title    string  `json:"Title"`
				Duration float64 `json:"Duration"`
				Mp3URL   string  `json:"Mp3Url"`
			}
			if err := json.Unmarshal(resp.Body, &body); err != nil {
				return nil, fmt.Errorf("failed to parse Clyp response: %w", err)
			}
			res := &Result{Title: strings.TrimSpace(body.Title), Duration: Duration(formatSeconds(body.Duration))}
			if body.Mp3URL != "" {
				res.ExtraImage = &posts.InlineImage{URL: body.Mp3URL, Filename: m[1], Extension: "mp3"}
			}
			return res, nil
		},
	}
}

// SoundCloud titles tracks through oEmbed, which reports no duration.
func SoundCloud(ep Endpoints) *Definition {
	return &Definition{
		ID:       "soundcloud",
		IconName: "soundcloud",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.|m\.)?soundcloud\.com/[\w-]+/[\w-]+/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return oEmbedRequest(ctx, ep.SoundCloudOEmbed, m[0])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			oembed, err := decodeOEmbed(resp)
			if err != nil {
				return nil, err
			}
			return &Result{Title: oembed.Title, Duration: NoDuration()}, nil
		},
	}
}

// Bandcamp has no metadata API; the page's OpenGraph title is used.
func Bandcamp() *Definition {
	return &Definition{
		ID:       "bandcamp",
		IconName: "bandcamp",
		Pattern:  regexp.MustCompile(`^https?://[\w-]+\.bandcamp\.com/(?:track|album)/[\w-]+/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return newGet(ctx, m[0])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			og := parseOpenGraph(resp.Body)
			return &Result{Title: og.Title, Duration: NoDuration()}, nil
		},
	}
}

// Vimeo titles videos through oEmbed, which includes the duration.
func Vimeo(ep Endpoints) *Definition {
	return &Definition{
		ID:       "vimeo",
		IconName: "vimeo",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.)?vimeo\.com/(\d+)(?:/[\w-]+)?/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return oEmbedRequest(ctx, ep.VimeoOEmbed, "https://vimeo.com/"+m[1])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			oembed, err := decodeOEmbed(resp)
			if err != nil {
				return nil, err
			}
			dur := NoDuration()
			if oembed.Duration > 0 {
				dur = Duration(formatSeconds(oembed.Duration))
			}
			return &Result{Title: oembed.Title, Duration: dur}, nil
		},
	}
}

// Pixiv reads the artwork page's OpenGraph title and preview image.
func Pixiv() *Definition {
	return &Definition{
		ID:       "pixiv",
		IconName: "pixiv",
		Pattern:  regexp.MustCompile(`^https?://(?:www\.)?pixiv\.net/(?:\w+/)?artworks/(\d+)/?$`),
		Request: func(ctx context.Context, m []string) (*http.Request, error) {
			return newGet(ctx, m[0])
		},
		Decode: func(m []string, resp *Response) (*Result, error) {
			og := parseOpenGraph(resp.Body)
			res := &Result{Title: og.Title}
			if og.Image != "" {
				res.ExtraImage = &posts.InlineImage{
					URL:          absoluteURL(og.Image),
					ThumbnailURL: absoluteURL(og.Image),
					Filename:     m[1],
					Extension:    imageExtension(og.Image),
				}
			}
			return res, nil
		},
	}
}

func imageExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := u.Path
	if i := strings.LastIndexByte(path, '.'); i >= 0 && i > strings.LastIndexByte(path, '/') {
		return strings.ToLower(path[i+1:])
	}
	return ""
}
