package domain

// Intent is the classified purpose of a user message.
type Intent string

const (
	IntentApplicationFlow  Intent = "application_flow"
	IntentDocumentInquiry  Intent = "document_inquiry"
	IntentRequirementCheck Intent = "requirement_check"
	IntentProgressStatus   Intent = "progress_status"
	IntentFAQ              Intent = "faq"
	IntentGeneral          Intent = "general"
)

// Classification is the outcome of intent classification.
// Confidence is descriptive; nothing downstream thresholds on it.
type Classification struct {
	Intent     Intent  `json:"intent"`
	Confidence float64 `json:"confidence"`
}
