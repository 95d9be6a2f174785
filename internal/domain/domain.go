package domain

// Step values for a signing session.
const (
	StepLanding  = "landing"
	StepAdopt    = "adopt"
	StepSigning  = "signing"
	StepReview   = "review"
	StepComplete = "complete"
)

// Field types accepted at the catalog load boundary.
const (
	FieldSignature = "signature"
	FieldInitial   = "initial"
	FieldDate      = "date"
	FieldText      = "text"
	FieldName      = "name"
	FieldEmail     = "email"
	FieldCompany   = "company"
	FieldTitle     = "title"
)

// Adoption capture methods.
const (
	MethodType   = "type"
	MethodDraw   = "draw"
	MethodUpload = "upload"
)

type Session struct {
	ID            string  `json:"id"`
	SignerID      string  `json:"signer_id"`
	SignerName    string  `json:"signer_name"`
	Step          string  `json:"step" enum:"landing,adopt,signing,review,complete"`
	Consent       bool    `json:"consent"`
	DocumentIndex int     `json:"document_index"`
	FieldIndex    int     `json:"field_index"`
	CreatedAt     string  `json:"created_at" format:"date-time"`
	UpdatedAt     string  `json:"updated_at" format:"date-time"`
	CompletedAt   *string `json:"completed_at,omitempty" format:"date-time"`
}

type Document struct {
	ID         string  `json:"id"`
	SessionID  string  `json:"session_id"`
	Name       string  `json:"name"`
	ContentURL string  `json:"content_url"`
	TemplateID *string `json:"template_id,omitempty"`
	Status     string  `json:"status" enum:"pending,signed"`
	Stage      *int    `json:"stage,omitempty"`
	Sequence   *int    `json:"sequence,omitempty"`
	DependsOn  *string `json:"depends_on,omitempty"`
	Position   int     `json:"position"`
}

type SignatureField struct {
	ID            string  `json:"id"`
	DocumentID    string  `json:"document_id"`
	Type          string  `json:"field_type" enum:"signature,initial,date,text,name,email,company,title"`
	SignerRole    string  `json:"signer_role,omitempty"`
	Page          int     `json:"page_number"`
	XPercent      float64 `json:"x_percent"`
	YPercent      float64 `json:"y_percent"`
	WidthPercent  float64 `json:"width_percent"`
	HeightPercent float64 `json:"height_percent"`
	Label         string  `json:"label,omitempty"`
	Required      bool    `json:"required"`
	Position      int     `json:"position"`
}

// FieldState is the completion record for one field within one session.
// ID is the composite {documentID}_{fieldID}, unique across documents that
// reuse field ids.
type FieldState struct {
	ID          string  `json:"id"`
	SessionID   string  `json:"session_id"`
	DocumentID  string  `json:"document_id"`
	FieldID     string  `json:"field_id"`
	Type        string  `json:"field_type" enum:"signature,initial,date,text,name,email,company,title"`
	Page        int     `json:"page_number"`
	Label       string  `json:"label"`
	Required    bool    `json:"required"`
	Completed   bool    `json:"completed"`
	Value       *string `json:"value,omitempty"`
	CompletedAt *string `json:"completed_at,omitempty" format:"date-time"`
}

// AdoptedSignature is a signer's reusable signature/initials pair. Values
// are literal text for the type method and image-data payloads for draw and
// upload.
type AdoptedSignature struct {
	SignerID        string `json:"signer_id"`
	SignatureValue  string `json:"signature_value"`
	SignatureMethod string `json:"signature_method" enum:"type,draw,upload"`
	InitialsValue   string `json:"initials_value"`
	InitialsMethod  string `json:"initials_method" enum:"type,draw,upload"`
	Font            string `json:"font,omitempty"`
	UpdatedAt       string `json:"updated_at" format:"date-time"`
}

// FieldPosition is a signer-chosen override of a completed field's catalog
// position. Width and height are never overridden.
type FieldPosition struct {
	SessionID string  `json:"session_id"`
	FieldID   string  `json:"field_id"`
	XPercent  float64 `json:"x_percent"`
	YPercent  float64 `json:"y_percent"`
	UpdatedAt string  `json:"updated_at" format:"date-time"`
}

type Submission struct {
	SessionID   string `json:"session_id"`
	DocumentID  string `json:"document_id"`
	Status      string `json:"status" enum:"pending,submitted,failed"`
	Error       string `json:"error,omitempty"`
	AttemptedAt string `json:"attempted_at" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	SessionID  string `json:"session_id,omitempty"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	HostID    string `json:"host_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// ValidFieldType reports whether t belongs to the closed field type set.
func ValidFieldType(t string) bool {
	switch t {
	case FieldSignature, FieldInitial, FieldDate, FieldText, FieldName, FieldEmail, FieldCompany, FieldTitle:
		return true
	}
	return false
}

// ValidMethod reports whether m is a known adoption capture method.
func ValidMethod(m string) bool {
	switch m {
	case MethodType, MethodDraw, MethodUpload:
		return true
	}
	return false
}
