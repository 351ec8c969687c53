package domain

// AttachmentType classifies a response attachment.
type AttachmentType string

const (
	AttachmentDocument AttachmentType = "document"
	AttachmentLink     AttachmentType = "link"
	AttachmentImage    AttachmentType = "image"
)

// Attachment is a resource referenced by a response.
type Attachment struct {
	Type        AttachmentType `json:"type"`
	Name        string         `json:"name"`
	URL         string         `json:"url"`
	Description string         `json:"description,omitempty"`
}

// ChatResponse is the structured reply of the dialogue engine.
type ChatResponse struct {
	Message        string       `json:"message" jsonschema_description:"Reply text (markdown)"`
	Suggestions    []string     `json:"suggestions" jsonschema_description:"Suggested follow-up actions"`
	Attachments    []Attachment `json:"attachments" jsonschema_description:"Referenced documents or links"`
	QuickReplies   []string     `json:"quickReplies" jsonschema_description:"Canned follow-up messages"`
	ProgressUpdate *Progress    `json:"progressUpdate,omitempty" jsonschema_description:"Progress change, if any"`
}

// NewChatResponse returns a response with empty, non-nil collections.
func NewChatResponse(message string) *ChatResponse {
	return &ChatResponse{
		Message:      message,
		Suggestions:  []string{},
		Attachments:  []Attachment{},
		QuickReplies: []string{},
	}
}
