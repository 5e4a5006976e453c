package onboarding

import (
	"fmt"
	"strings"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// MaxDocumentSize is the per-file ceiling enforced before upload.
const MaxDocumentSize = 5 << 20

var allowedContentTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
}

// ValidateDocuments checks both onboarding documents locally.
// A nil document counts as missing.
func ValidateDocuments(idProof, certification *domain.Document) error {
	missing := []string{}
	if idProof == nil || idProof.Size() == 0 {
		missing = append(missing, "id_verification")
	}
	if certification == nil || certification.Size() == 0 {
		missing = append(missing, "certification")
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("both identity proof and certification are required",
			map[string]any{"missing": missing})
	}
	if err := validateDocument("id_verification", *idProof); err != nil {
		return err
	}
	return validateDocument("certification", *certification)
}

func validateDocument(field string, doc domain.Document) error {
	contentType := strings.ToLower(strings.TrimSpace(doc.ContentType))
	if i := strings.IndexByte(contentType, ';'); i >= 0 {
		contentType = strings.TrimSpace(contentType[:i])
	}
	if _, ok := allowedContentTypes[contentType]; !ok {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s must be a JPEG, PNG or PDF file", field),
			map[string]any{"field": field, "content_type": doc.ContentType})
	}
	if doc.Size() > MaxDocumentSize {
		return apperrors.NewValidationError(
			fmt.Sprintf("%s exceeds the 5MB limit", field),
			map[string]any{"field": field, "size": doc.Size()})
	}
	return nil
}
