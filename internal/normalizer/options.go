package normalizer

// Channel tells the normalizer which webhook produced the body.
type Channel string

const (
	ChannelText  Channel = "text"
	ChannelImage Channel = "image"
)

// Options controls field precedence and rejection thresholds.
// Field names are gjson paths, so nested lookups such as "data.output" work.
type Options struct {
	TextFields       []string
	ImageFields      []string
	MinContentLength int
	MinImageLength   int
}

// DefaultTextFields is consulted in order for the text channel.
var DefaultTextFields = []string{"output", "response", "content", "message", "safeResponse", "text", "data"}

// DefaultImageFields is consulted for image-channel bodies that are not an
// image payload (no image_url/success keys).
var DefaultImageFields = []string{"output", "response", "content", "message"}

const (
	DefaultMinContentLength = 3
	DefaultMinImageLength   = 100
)

// DefaultOptions returns the built-in adapter configuration.
func DefaultOptions() Options {
	return Options{
		TextFields:       append([]string(nil), DefaultTextFields...),
		ImageFields:      append([]string(nil), DefaultImageFields...),
		MinContentLength: DefaultMinContentLength,
		MinImageLength:   DefaultMinImageLength,
	}
}

func (o Options) withDefaults() Options {
	if len(o.TextFields) == 0 {
		o.TextFields = append([]string(nil), DefaultTextFields...)
	}
	if len(o.ImageFields) == 0 {
		o.ImageFields = append([]string(nil), DefaultImageFields...)
	}
	if o.MinContentLength <= 0 {
		o.MinContentLength = DefaultMinContentLength
	}
	if o.MinImageLength <= 0 {
		o.MinImageLength = DefaultMinImageLength
	}
	return o
}
