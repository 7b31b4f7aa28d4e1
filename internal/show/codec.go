package show

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/nerrad567/lumen-core/internal/auth"
)

// Parse decodes a JSON document over the default output and access
// settings, normalises it and validates it. Unknown fields are rejected.
func Parse(data []byte) (*Document, error) {
	doc := &Document{
		Output: DefaultOutput(),
		Access: AccessSettings{DefaultRole: auth.RoleViewer, ShowConnectedUsers: true},
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	doc.Normalize()
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return doc, nil
}

// Encode renders a document as indented JSON.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding document: %w", err)
	}
	return append(data, '\n'), nil
}
