package domain

// Document is a file an applicant submits during onboarding.
type Document struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Size returns the payload length in bytes.
func (d Document) Size() int64 {
	return int64(len(d.Data))
}

// ActionResult is the backend's answer to an admin disposition.
// Authoritative is set when the reply carried the complete updated pending set in Updated.
type ActionResult[T any] struct {
	Message       string
	Updated       []T
	Authoritative bool
}
