package errors

import "fmt"

// ErrorCode represents a deckfix error code.
type ErrorCode string

const (
	ErrNotAZip                 ErrorCode = "NOT_A_ZIP"                 // 400: bytes are not a ZIP archive
	ErrDuplicatePart           ErrorCode = "DUPLICATE_PART"            // 400: two archive entries normalize to one part name
	ErrMalformedPartName       ErrorCode = "MALFORMED_PART_NAME"       // 400: part name cannot be normalized
	ErrDuplicateRelationshipID ErrorCode = "DUPLICATE_RELATIONSHIP_ID" // 409: relationship id reused within a source
	ErrInvalidContentTypesXML  ErrorCode = "INVALID_CONTENT_TYPES_XML" // 422: [Content_Types].xml does not parse
	ErrInvalidOperation        ErrorCode = "INVALID_OPERATION"         // 409: call not allowed in the session's current state
	ErrInvalidRequest          ErrorCode = "INVALID_REQUEST"           // 400: bad parameters
	ErrNotFound                ErrorCode = "NOT_FOUND"                 // 404: file, part, or run missing
	ErrInternal                ErrorCode = "INTERNAL"                  // 500: unexpected failure
)

// DeckError represents a structured error with code, status, and details.
type DeckError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DeckError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewNotAZip creates an error for bytes that are not a ZIP archive.
func NewNotAZip(err error) *DeckError {
	msg := "input is not a ZIP archive"
	if err != nil {
		msg = fmt.Sprintf("input is not a ZIP archive: %v", err)
	}
	return &DeckError{
		Code:    ErrNotAZip,
		Status:  400,
		Message: msg,
	}
}

// NewDuplicatePart creates an error for colliding archive entry names.
func NewDuplicatePart(name string) *DeckError {
	return &DeckError{
		Code:    ErrDuplicatePart,
		Status:  400,
		Message: fmt.Sprintf("archive contains duplicate part %q", name),
		Details: map[string]any{"part": name},
	}
}

// NewMalformedPartName creates an error for an unnormalizable part name.
func NewMalformedPartName(raw, reason string) *DeckError {
	return &DeckError{
		Code:    ErrMalformedPartName,
		Status:  400,
		Message: fmt.Sprintf("malformed part name %q: %s", raw, reason),
		Details: map[string]any{"raw": raw},
	}
}

// NewDuplicateRelationshipID creates an error for a reused relationship id.
func NewDuplicateRelationshipID(source, id string) *DeckError {
	return &DeckError{
		Code:    ErrDuplicateRelationshipID,
		Status:  409,
		Message: fmt.Sprintf("relationship id %q already exists for source %q", id, source),
		Details: map[string]any{"source": source, "id": id},
	}
}

// NewInvalidContentTypesXML creates an error for an unparseable content-types part.
func NewInvalidContentTypesXML(err error) *DeckError {
	return &DeckError{
		Code:    ErrInvalidContentTypesXML,
		Status:  422,
		Message: fmt.Sprintf("content types part does not parse: %v", err),
	}
}

// NewInvalidOperation creates an error for a call made in the wrong session state.
func NewInvalidOperation(msg string) *DeckError {
	return &DeckError{
		Code:    ErrInvalidOperation,
		Status:  409,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DeckError {
	return &DeckError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error.
func NewNotFound(what string) *DeckError {
	return &DeckError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("not found: %s", what),
		Details: map[string]any{"identifier": what},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *DeckError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &DeckError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is a DeckError with the given code.
func Is(err error, code ErrorCode) bool {
	if dErr, ok := err.(*DeckError); ok {
		return dErr.Code == code
	}
	return false
}
