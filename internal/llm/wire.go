package llm

// Request is the generateContent body.
type Request struct {
	Contents          []Content `json:"contents"`
	SystemInstruction *Content  `json:"systemInstruction,omitempty"`
}

// Content groups parts authored by a single role.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// Part is either a text fragment or an inline binary attachment.
type Part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *InlineData `json:"inline_data,omitempty"`
}

// InlineData carries a base64 encoded document.
type InlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

// Response is the subset of the generateContent reply the gateway reads.
type Response struct {
	Candidates []Candidate `json:"candidates"`
}

// Candidate is one generated alternative.
type Candidate struct {
	Content Content `json:"content"`
}

// FirstText returns candidates[0].content.parts[0].text when present and non-empty.
func (r Response) FirstText() (string, bool) {
	if len(r.Candidates) == 0 {
		return "", false
	}
	parts := r.Candidates[0].Content.Parts
	if len(parts) == 0 || parts[0].Text == "" {
		return "", false
	}
	return parts[0].Text, true
}
