package handlers

import (
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/homeservices-portal/internal/api/dto"
	"github.com/spec-kit/homeservices-portal/internal/apiclient"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/onboarding"
)

// ProviderHandler exposes the onboarding state machine.
type ProviderHandler struct {
	machine *onboarding.Machine
}

// NewProviderHandler constructs handler.
func NewProviderHandler(machine *onboarding.Machine) *ProviderHandler {
	return &ProviderHandler{machine: machine}
}

// Status handles GET /provider/status. The first call fetches; later calls read the last-known status.
func (h *ProviderHandler) Status(c *fiber.Ctx) error {
	status, known := h.machine.Status()
	if !known {
		var err error
		if status, err = h.machine.Refresh(c.UserContext()); err != nil {
			return err
		}
	}
	return c.JSON(fiber.Map{"data": h.statusResponse(status)})
}

// Refresh handles POST /provider/status/refresh.
func (h *ProviderHandler) Refresh(c *fiber.Ctx) error {
	status, err := h.machine.Refresh(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": h.statusResponse(status)})
}

// UploadDocuments handles POST /provider/documents (multipart).
func (h *ProviderHandler) UploadDocuments(c *fiber.Ctx) error {
	idProof, err := formDocument(c, apiclient.FieldIDVerification)
	if err != nil {
		return err
	}
	certification, err := formDocument(c, apiclient.FieldCertification)
	if err != nil {
		return err
	}

	if err := h.machine.Submit(c.UserContext(), idProof, certification); err != nil {
		return err
	}
	status, _ := h.machine.Status()
	return c.Status(http.StatusAccepted).JSON(fiber.Map{"data": h.statusResponse(status)})
}

func (h *ProviderHandler) statusResponse(status domain.ProviderStatus) dto.ProviderStatusResponse {
	resp := dto.ProviderStatusResponse{
		IsVerified:     status.IsVerified,
		NeedsDocuments: status.NeedsDocuments,
		State:          h.machine.State(),
	}
	if err := h.machine.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	return resp
}

// formDocument returns nil when the field is absent so the machine reports it as missing.
func formDocument(c *fiber.Ctx, field string) (*domain.Document, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil
	}
	data, err := readPart(header)
	if err != nil {
		return nil, fiber.NewError(http.StatusBadRequest, "unreadable file "+field)
	}
	return &domain.Document{
		FileName:    header.Filename,
		ContentType: header.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

func readPart(header *multipart.FileHeader) ([]byte, error) {
	f, err := header.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
