package normalizer

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/zhouzirui/dr-gini/backend/internal/model/chat"
)

const dataImagePrefix = "data:image/"

// ValidateImage reports whether url is an embeddable base64 image data URI of
// at least DefaultMinImageLength characters.
func ValidateImage(url string) bool {
	return validateImage(url, DefaultMinImageLength)
}

func validateImage(url string, minLength int) bool {
	return strings.HasPrefix(url, dataImagePrefix) && len(url) >= minLength
}

func isImagePayload(v gjson.Result) bool {
	return v.IsObject() && (v.Get("image_url").Exists() || v.Get("success").Exists())
}

func (n *Normalizer) imageResponse(v gjson.Result) Response {
	url := strings.TrimSpace(v.Get("image_url").String())
	success := v.Get("success")
	ok := url != "" && (success.Bool() || !success.Exists())
	if !ok {
		message := firstString(v, "error", "message", "details")
		if message == "" {
			message = "the image service did not return an image"
		}
		return Response{HTML: imageErrorFragment(message), Problem: ProblemImage}
	}

	if !validateImage(url, n.opts.MinImageLength) {
		return Response{HTML: imageErrorFragment("invalid image data received"), Problem: ProblemImage}
	}

	meta := v.Get("metadata")
	return Response{Image: &chat.ImageDescriptor{
		URL: url,
		Metadata: chat.ImageMetadata{
			Compound: meta.Get("compound").String(),
			CID:      meta.Get("cid").String(),
			InChIKey: meta.Get("inchikey").String(),
			Source:   meta.Get("source").String(),
		},
		SizeBytes: imageSize(v, url),
	}}
}

func imageSize(v gjson.Result, url string) int {
	for _, path := range []string{"size_bytes", "sizeBytes", "metadata.size_bytes"} {
		if size := v.Get(path); size.Exists() && size.Int() > 0 {
			return int(size.Int())
		}
	}

	comma := strings.IndexByte(url, ',')
	if comma < 0 {
		return 0
	}
	payload := strings.TrimSpace(url[comma+1:])
	if payload == "" {
		return 0
	}
	padding := len(payload) - len(strings.TrimRight(payload, "="))
	return len(payload)*3/4 - padding
}

func firstString(v gjson.Result, paths ...string) string {
	for _, path := range paths {
		if s := strings.TrimSpace(v.Get(path).String()); s != "" {
			return s
		}
	}
	return ""
}
