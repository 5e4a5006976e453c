package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/domain"
	apperrors "github.com/spec-kit/homeservices-portal/pkg/util"
)

// Upload form field names expected by the backend.
const (
	FieldIDVerification = "id_verification"
	FieldCertification  = "certification"
)

// SignInResult is what a successful sign-in yields.
type SignInResult struct {
	Session           domain.Session
	RedirectTo        string
	NeedsDocuments    *bool
	NeedsVerification bool
	IsPending         bool
}

// SignIn exchanges credentials for a session. The role in the result is the one the
// server asserts, not the one requested.
func (c *Client) SignIn(ctx context.Context, email, password string, role domain.Role) (*SignInResult, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	form.Set("role", role.BackendName())

	var resp signInResponse
	err := c.do(ctx, request{
		endpoint:    "signin",
		method:      http.MethodPost,
		path:        "/signin",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.AccessToken == "" {
		return nil, apperrors.NewInvalidResponse("sign-in response without credential", nil)
	}
	serverRole, err := domain.ParseRole(resp.Role)
	if err != nil {
		return nil, apperrors.NewInvalidResponse("sign-in response with unknown role", err)
	}
	subject := resp.UserID
	if subject == "" {
		subject = resp.TempUserID
	}
	if resp.Email == "" {
		resp.Email = email
	}

	return &SignInResult{
		Session: domain.Session{
			SubjectID:   string(subject),
			Role:        serverRole,
			Credential:  resp.AccessToken,
			DisplayName: resp.FullName,
			Email:       resp.Email,
		},
		RedirectTo:        resp.RedirectTo,
		NeedsDocuments:    resp.NeedsDocuments,
		NeedsVerification: resp.NeedsVerification,
		IsPending:         resp.IsPending,
	}, nil
}

// Validate asks the backend whether the stored credential is still good.
// When the backend omits the role, the stored session role is reported.
func (c *Client) Validate(ctx context.Context) (domain.Identity, error) {
	var resp validateResponse
	if err := c.do(ctx, request{
		endpoint: "auth_validate",
		method:   http.MethodGet,
		path:     "/auth/validate",
	}, &resp); err != nil {
		return domain.Identity{}, err
	}
	if !resp.Valid {
		return domain.Identity{}, apperrors.NewUnauthenticated("credential rejected")
	}

	var role domain.Role
	if resp.Role != "" {
		parsed, err := domain.ParseRole(resp.Role)
		if err != nil {
			return domain.Identity{}, apperrors.NewInvalidResponse("validation response with unknown role", err)
		}
		role = parsed
	} else if sess, ok := c.tokens.Get(); ok {
		role = sess.Role
	}
	if role == domain.RoleAdmin && resp.IsSuperAdmin {
		role = domain.RoleSuperAdmin
	}

	return domain.Identity{
		SubjectID:   string(resp.UserID),
		Role:        role,
		Email:       resp.Email,
		DisplayName: resp.FullName,
	}, nil
}

// ProviderStatus fetches the signed-in provider's onboarding flags.
func (c *Client) ProviderStatus(ctx context.Context) (domain.ProviderStatus, error) {
	var resp providerStatusResponse
	if err := c.do(ctx, request{
		endpoint: "provider_status",
		method:   http.MethodGet,
		path:     "/provider/status",
	}, &resp); err != nil {
		return domain.ProviderStatus{}, err
	}
	status := domain.ProviderStatus{
		IsVerified:     resp.IsVerified,
		NeedsDocuments: resp.NeedsDocuments,
		Rejected:       strings.EqualFold(resp.Status, "rejected"),
	}
	if err := status.Validate(); err != nil {
		return domain.ProviderStatus{}, apperrors.NewInvalidResponse("inconsistent provider status", err)
	}
	return status, nil
}

// UploadResult acknowledges a document submission.
type UploadResult struct {
	Message    string
	RedirectTo string
}

// UploadDocuments submits both onboarding documents in one multipart request.
// It runs under the upload budget instead of the default request timeout.
func (c *Client) UploadDocuments(ctx context.Context, idProof, certification domain.Document) (*UploadResult, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writePart(writer, FieldIDVerification, idProof); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := writePart(writer, FieldCertification, certification); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	if err := writer.Close(); err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	var resp uploadResponse
	if err := c.do(ctx, request{
		endpoint:    "provider_upload_documents",
		method:      http.MethodPost,
		path:        "/provider/upload-documents",
		body:        body,
		contentType: writer.FormDataContentType(),
		timeout:     c.uploadTimeout,
	}, &resp); err != nil {
		return nil, err
	}
	return &UploadResult{Message: resp.Message, RedirectTo: resp.RedirectTo}, nil
}

func writePart(w *multipart.Writer, field string, doc domain.Document) error {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, doc.FileName))
	header.Set("Content-Type", doc.ContentType)
	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}
	_, err = part.Write(doc.Data)
	return err
}

// ListRegistrationRequests returns the pending provider registrations in backend order.
func (c *Client) ListRegistrationRequests(ctx context.Context) ([]domain.RegistrationRequest, error) {
	var resp []wireRegistration
	if err := c.do(ctx, request{
		endpoint: "registration_requests",
		method:   http.MethodGet,
		path:     "/admin/registration-requests",
		query:    url.Values{"status": {string(domain.RequestStatusPending)}},
	}, &resp); err != nil {
		return nil, err
	}
	return pendingRegistrations(c.logger, resp), nil
}

// ApproveRegistration approves a pending provider registration.
func (c *Client) ApproveRegistration(ctx context.Context, id string) (domain.ActionResult[domain.RegistrationRequest], error) {
	return c.resolveRegistration(ctx, id, "approve")
}

// RejectRegistration rejects a pending provider registration.
func (c *Client) RejectRegistration(ctx context.Context, id string) (domain.ActionResult[domain.RegistrationRequest], error) {
	return c.resolveRegistration(ctx, id, "reject")
}

func (c *Client) resolveRegistration(ctx context.Context, id, action string) (domain.ActionResult[domain.RegistrationRequest], error) {
	var result domain.ActionResult[domain.RegistrationRequest]
	if id == "" {
		return result, apperrors.NewValidationError("registration request id is required", nil)
	}
	var resp registrationActionResponse
	if err := c.do(ctx, request{
		endpoint: "registration_" + action,
		method:   http.MethodPost,
		path:     "/admin/registration-requests/" + url.PathEscape(id) + "/" + action,
	}, &resp); err != nil {
		return result, err
	}
	result.Message = resp.Message
	if resp.UpdatedRequests != nil {
		result.Authoritative = true
		result.Updated = pendingRegistrations(c.logger, *resp.UpdatedRequests)
	}
	return result, nil
}

// ListReports returns the open moderation reports in backend order.
func (c *Client) ListReports(ctx context.Context) ([]domain.Report, error) {
	var resp []wireReport
	if err := c.do(ctx, request{
		endpoint: "reports",
		method:   http.MethodGet,
		path:     "/reports",
		query:    url.Values{"status": {string(domain.ReportStatusOpen)}},
	}, &resp); err != nil {
		return nil, err
	}
	return openReports(c.logger, resp), nil
}

// ResolveReport marks a report as handled.
func (c *Client) ResolveReport(ctx context.Context, id string) (domain.ActionResult[domain.Report], error) {
	return c.closeReport(ctx, id, "resolve")
}

// DismissReport closes a report without action.
func (c *Client) DismissReport(ctx context.Context, id string) (domain.ActionResult[domain.Report], error) {
	return c.closeReport(ctx, id, "dismiss")
}

func (c *Client) closeReport(ctx context.Context, id, action string) (domain.ActionResult[domain.Report], error) {
	var result domain.ActionResult[domain.Report]
	if id == "" {
		return result, apperrors.NewValidationError("report id is required", nil)
	}
	var resp reportActionResponse
	if err := c.do(ctx, request{
		endpoint: "report_" + action,
		method:   http.MethodPost,
		path:     "/reports/" + url.PathEscape(id) + "/" + action,
	}, &resp); err != nil {
		return result, err
	}
	result.Message = resp.Message
	if resp.UpdatedReports != nil {
		result.Authoritative = true
		result.Updated = openReports(c.logger, *resp.UpdatedReports)
	}
	return result, nil
}

// HomeownerRegistration is the sign-up form for a homeowner account.
type HomeownerRegistration struct {
	FullName    string
	Email       string
	Password    string
	PhoneNumber string
	Address     string
}

// RegisterHomeowner creates a homeowner account and returns its id.
func (c *Client) RegisterHomeowner(ctx context.Context, in HomeownerRegistration) (string, error) {
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return "", apperrors.NewValidationError("full name, email and password are required", nil)
	}
	form := url.Values{}
	form.Set("full_name", in.FullName)
	form.Set("email", in.Email)
	form.Set("password", in.Password)
	setIfPresent(form, "phone_number", in.PhoneNumber)
	setIfPresent(form, "address", in.Address)

	var resp struct {
		Message string `json:"message"`
		UserID  wireID `json:"user_id"`
	}
	if err := c.do(ctx, request{
		endpoint:    "register_homeowner",
		method:      http.MethodPost,
		path:        "/register/homeowner/",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp); err != nil {
		return "", err
	}
	return string(resp.UserID), nil
}

// ProviderApplication is the sign-up form for a service provider.
type ProviderApplication struct {
	FullName        string
	Email           string
	Password        string
	PhoneNumber     string
	Address         string
	YearsExperience *int
}

// RegisterProvider files a provider registration request for admin review.
func (c *Client) RegisterProvider(ctx context.Context, in ProviderApplication) (string, error) {
	if in.FullName == "" || in.Email == "" || in.Password == "" {
		return "", apperrors.NewValidationError("full name, email and password are required", nil)
	}
	if in.YearsExperience != nil && *in.YearsExperience < 0 {
		return "", apperrors.NewValidationError("years of experience cannot be negative", nil)
	}
	form := url.Values{}
	form.Set("full_name", in.FullName)
	form.Set("email", in.Email)
	form.Set("password", in.Password)
	setIfPresent(form, "phone_number", in.PhoneNumber)
	setIfPresent(form, "address", in.Address)
	if in.YearsExperience != nil {
		form.Set("years_experience", strconv.Itoa(*in.YearsExperience))
	}

	var resp providerRequestResponse
	if err := c.do(ctx, request{
		endpoint:    "register_provider",
		method:      http.MethodPost,
		path:        "/register/provider/request",
		body:        strings.NewReader(form.Encode()),
		contentType: "application/x-www-form-urlencoded",
	}, &resp); err != nil {
		return "", err
	}
	return string(resp.RequestID), nil
}

func setIfPresent(form url.Values, key, value string) {
	if value != "" {
		form.Set(key, value)
	}
}

// pendingRegistrations keeps only well-formed pending items, preserving order.
func pendingRegistrations(logger *zap.Logger, items []wireRegistration) []domain.RegistrationRequest {
	out := make([]domain.RegistrationRequest, 0, len(items))
	for _, item := range items {
		req, err := item.toDomain()
		if err != nil {
			logger.Warn("dropping malformed registration request", zap.String("id", string(item.ID)), zap.Error(err))
			continue
		}
		if req.Status.Resolved() {
			continue
		}
		out = append(out, req)
	}
	return out
}

func openReports(logger *zap.Logger, items []wireReport) []domain.Report {
	out := make([]domain.Report, 0, len(items))
	for _, item := range items {
		report, err := item.toDomain()
		if err != nil {
			logger.Warn("dropping malformed report", zap.String("id", string(item.ID)), zap.Error(err))
			continue
		}
		if report.Status != domain.ReportStatusOpen {
			continue
		}
		out = append(out, report)
	}
	return out
}
