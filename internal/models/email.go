package models

// ContactMessage is the body of POST /send-email
type ContactMessage struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Message string `json:"message"`
	Subject string `json:"subject,omitempty"`
}

// DefaultContactSubject is used when the form omits a subject
const DefaultContactSubject = "General Inquiry"
