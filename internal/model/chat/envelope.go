package chat

// OutgoingEnvelope is the JSON body posted verbatim to the text webhook.
type OutgoingEnvelope struct {
	Message   string `json:"message"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	MessageID string `json:"messageId"`
	RequestID string `json:"requestId,omitempty"`
	Timestamp string `json:"timestamp"`
}

// ImageEnvelope extends the text envelope for the image-generation webhook.
type ImageEnvelope struct {
	OutgoingEnvelope
	Compound  string `json:"compound"`
	ImageType string `json:"imageType,omitempty"`
}

// ImageMetadata describes the compound an image was generated for.
type ImageMetadata struct {
	Compound string `json:"compound"`
	CID      string `json:"cid,omitempty"`
	InChIKey string `json:"inchikey,omitempty"`
	Source   string `json:"source,omitempty"`
}

// ImageDescriptor is the structured outcome of a successful image payload.
type ImageDescriptor struct {
	URL       string        `json:"url"`
	Metadata  ImageMetadata `json:"metadata"`
	SizeBytes int           `json:"sizeBytes,omitempty"`
}
