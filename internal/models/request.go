// Package models defines the request, response and error types of the conversion API.
package models

// DefaultFilename is used when a contentBytes request carries no name.
const DefaultFilename = "file"

// Request is one of the two accepted request shapes. The unexported method
// seals the set of variants to ContentBytesRequest and NamedContentRequest.
type Request interface {
	// Filename returns the filename the extension is derived from.
	Filename() string
	// Payload returns the base64 payload and whether one was supplied.
	Payload() (string, bool)
	isRequest()
}

// ContentBytesRequest is the {"contentBytes", "name"} shape.
type ContentBytesRequest struct {
	ContentBytes string
	// Valid is false when contentBytes was present but not a string.
	Valid bool
	Name  string
}

// Filename returns Name, which is DefaultFilename when the body had no name.
func (r ContentBytesRequest) Filename() string { return r.Name }

// Payload returns the contentBytes value.
func (r ContentBytesRequest) Payload() (string, bool) { return r.ContentBytes, r.Valid }

func (ContentBytesRequest) isRequest() {}

// NamedContentRequest is the {"Content"|"Value", "Name"} shape.
type NamedContentRequest struct {
	Content string
	// Valid is false when neither Content nor Value held a usable string.
	Valid bool
	Name  string
}

// Filename returns Name.
func (r NamedContentRequest) Filename() string { return r.Name }

// Payload returns the Content value, or Value when Content was empty.
func (r NamedContentRequest) Payload() (string, bool) { return r.Content, r.Valid }

func (NamedContentRequest) isRequest() {}

// ConvertRequest is the body the CLI sends; it is a ContentBytesRequest on the wire.
type ConvertRequest struct {
	ContentBytes string `json:"contentBytes"`
	Name         string `json:"name,omitempty"`
}
