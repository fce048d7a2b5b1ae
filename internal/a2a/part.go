package a2a

import (
	"encoding/json"
	"fmt"
)

// PartType identifies the content variant of a message or artifact part.
type PartType string

const (
	PartTypeText PartType = "text"
	PartTypeFile PartType = "file"
	PartTypeData PartType = "data"
)

// FileContent holds file data carried by a file part. Exactly one of
// Bytes (base64) or URI should be set.
type FileContent struct {
	Name     *string `json:"name,omitempty"`
	MimeType *string `json:"mimeType,omitempty"`
	Bytes    *string `json:"bytes,omitempty"`
	URI      *string `json:"uri,omitempty"`
}

// Part is one unit of content inside a message or artifact. It is a tagged
// union over text, file, and data variants, discriminated by Type.
type Part struct {
	Type     PartType               `json:"type"`
	Text     *string                `json:"text,omitempty"`
	File     *FileContent           `json:"file,omitempty"`
	Data     map[string]interface{} `json:"data,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// NewTextPart creates a text part.
func NewTextPart(text string) Part {
	return Part{Type: PartTypeText, Text: &text}
}

// NewFilePart creates a file part.
func NewFilePart(file FileContent) Part {
	return Part{Type: PartTypeFile, File: &file}
}

// NewDataPart creates a structured data part.
func NewDataPart(data map[string]interface{}) Part {
	return Part{Type: PartTypeData, Data: data}
}

// Validate checks that the part carries the content its type declares.
func (p *Part) Validate() error {
	switch p.Type {
	case PartTypeText:
		if p.Text == nil {
			return fmt.Errorf("text part has no text content")
		}
	case PartTypeFile:
		if p.File == nil {
			return fmt.Errorf("file part has no file content")
		}
		if p.File.Bytes == nil && p.File.URI == nil {
			return fmt.Errorf("file part must carry bytes or a uri")
		}
	case PartTypeData:
		if p.Data == nil {
			return fmt.Errorf("data part has no data content")
		}
	default:
		return fmt.Errorf("unknown part type %q", p.Type)
	}
	return nil
}

// UnmarshalJSON decodes a part and rejects unknown type discriminators so
// malformed documents fail loudly instead of round-tripping silently.
func (p *Part) UnmarshalJSON(data []byte) error {
	type alias Part
	var decoded alias
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*p = Part(decoded)
	return p.Validate()
}
