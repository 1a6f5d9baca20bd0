package httpclient

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strings"
	"time"
)

// HTTPClient is shared by all outbound calls. Tests may swap it.
var HTTPClient = &http.Client{Timeout: 10 * time.Second}

var ErrNotImage = errors.New("URL does not point to an image")

// ProbeImage sends a HEAD request to rawURL and returns the media type when
// the response is 2xx and announces an image/* content type.
func ProbeImage(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "image/*")

	resp, err := HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("image URL is not accessible: %s", resp.Status)
	}

	ct := resp.Header.Get("Content-Type")
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(ct))
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return "", fmt.Errorf("%w (content-type %q)", ErrNotImage, ct)
	}
	return mediaType, nil
}
