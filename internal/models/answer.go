package models

// StructuredAnswer is the typed result of an answer generation call.
// Found is the model's own judgement that the supplied evidence supports Answer.
type StructuredAnswer struct {
	Answer string `json:"answer"`
	Found  bool   `json:"is_answer_found"`
}

// NotFoundAnswer is the answer text models are instructed to use when the evidence is insufficient
const NotFoundAnswer = "No relevant answer found in the provided document"

// Stage names a state of the hybrid answering state machine
type Stage string

const (
	StageCondense          Stage = "CONDENSE"
	StageRetrievePrimary   Stage = "RETRIEVE_PRIMARY"
	StageGeneratePrimary   Stage = "GENERATE_PRIMARY"
	StageRetrieveSecondary Stage = "RETRIEVE_SECONDARY"
	StageGenerateSecondary Stage = "GENERATE_SECONDARY"
	StageAccept            Stage = "ACCEPT"
)

// AskResult is returned by the answering engine for one question
type AskResult struct {
	SessionID          string         `json:"session_id"`
	Question           string         `json:"question"`
	StandaloneQuestion string         `json:"standalone_question"`
	Answer             string         `json:"answer"`
	Found              bool           `json:"found"`
	Origin             EvidenceOrigin `json:"origin"`
	Evidence           []TextChunk    `json:"evidence,omitempty"`
	Stages             []Stage        `json:"stages"`
}
