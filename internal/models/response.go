package models

// FileText is the successful conversion response.
type FileText struct {
	Filename  string `json:"filename"`
	Extension string `json:"extension"`
	Text      string `json:"text"`
}

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// Format describes one supported extension and the converter that handles it.
type Format struct {
	Extension string `json:"extension"`
	Converter string `json:"converter"`
}

// FormatsResponse is returned by GET /formats.
type FormatsResponse struct {
	Formats  []Format `json:"formats"`
	Fallback string   `json:"fallback"`
}
