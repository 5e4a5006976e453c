package devbackend

import (
	"fmt"
	"mime/multipart"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/homeservices-portal/internal/auth"
	"github.com/spec-kit/homeservices-portal/internal/domain"
	"github.com/spec-kit/homeservices-portal/internal/navigation"
)

var uploadTypes = map[string]struct{}{
	"image/jpeg":      {},
	"image/png":       {},
	"application/pdf": {},
}

func (s *Server) signIn(c *fiber.Ctx) error {
	email := strings.TrimSpace(c.FormValue("email"))
	password := c.FormValue("password")
	if email == "" || password == "" || c.FormValue("role") == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "email, password and role are required")
	}
	role, err := domain.ParseRole(c.FormValue("role"))
	if err != nil {
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if app := s.state.applicationByEmail(email); app != nil {
		if auth.ComparePassword(app.PasswordHash, password) != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Incorrect password")
		}
		if role != domain.RoleProvider {
			return fiber.NewError(fiber.StatusForbidden, "Pending registration is for service provider role only")
		}
		token, _, err := s.tokens.GenerateToken(auth.Claims{
			SubjectID: strconv.Itoa(app.ID),
			Email:     app.Email,
			Role:      domain.RoleProvider,
			Pending:   true,
		})
		if err != nil {
			return err
		}
		return c.JSON(fiber.Map{
			"access_token":    token,
			"token_type":      "bearer",
			"role":            domain.RoleProvider.BackendName(),
			"temp_user_id":    app.ID,
			"full_name":       app.FullName,
			"email":           app.Email,
			"is_pending":      true,
			"needs_documents": !app.hasDocuments(),
			"redirect_to":     strings.TrimPrefix(navigation.PendingReviewPath, "/"),
		})
	}

	acct, ok := s.state.accounts[email]
	if !ok {
		return fiber.NewError(fiber.StatusNotFound, "User not found")
	}
	if acct.Role != role {
		return fiber.NewError(fiber.StatusForbidden, "User does not have this role")
	}
	if auth.ComparePassword(acct.PasswordHash, password) != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Incorrect password")
	}

	token, _, err := s.tokens.GenerateToken(auth.Claims{
		SubjectID:  strconv.Itoa(acct.ID),
		Email:      acct.Email,
		Role:       acct.Role,
		SuperAdmin: acct.SuperAdmin,
	})
	if err != nil {
		return err
	}
	resp := fiber.Map{
		"access_token": token,
		"token_type":   "bearer",
		"role":         acct.Role.BackendName(),
		"user_id":      acct.ID,
		"full_name":    acct.FullName,
		"email":        acct.Email,
	}
	switch {
	case acct.Role == domain.RoleProvider && (!acct.hasDocuments() || !acct.Verified):
		resp["redirect_to"] = strings.TrimPrefix(navigation.UploadDocumentsPath, "/")
		resp["needs_verification"] = true
		resp["needs_documents"] = !acct.hasDocuments()
	case acct.Role == domain.RoleAdmin && acct.SuperAdmin:
		resp["redirect_to"] = navigation.SuperAdminHome
	default:
		resp["redirect_to"] = navigation.HomeFor(acct.Role)
	}
	s.logger.Info("signed in", zap.String("email", acct.Email), zap.String("role", string(acct.Role)))
	return c.JSON(resp)
}

func (s *Server) validate(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)
	resp := fiber.Map{
		"valid":          true,
		"user_id":        principal.SubjectID,
		"email":          principal.Email,
		"role":           principal.Claims.Role.BackendName(),
		"is_super_admin": principal.SuperAdmin,
	}
	if id, err := strconv.Atoi(principal.SubjectID); err == nil {
		resp["user_id"] = id
	}
	return c.JSON(resp)
}

func (s *Server) providerStatus(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	if principal.Pending {
		app := s.state.applicationByID(principal.SubjectID)
		if app == nil {
			return fiber.NewError(fiber.StatusNotFound, "Provider not found")
		}
		return c.JSON(fiber.Map{
			"is_verified":     app.Status == domain.RequestStatusApproved,
			"needs_documents": app.Status == domain.RequestStatusPending && !app.hasDocuments(),
			"status":          string(app.Status),
		})
	}
	acct := s.state.accountByID(principal.SubjectID)
	if acct == nil || acct.Role != domain.RoleProvider {
		return fiber.NewError(fiber.StatusNotFound, "Provider not found")
	}
	return c.JSON(fiber.Map{
		"is_verified":     acct.Verified && acct.hasDocuments(),
		"needs_documents": !acct.hasDocuments(),
	})
}

func (s *Server) uploadDocuments(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	idPath, err := storedUpload(c, "id_verification")
	if err != nil {
		return err
	}
	certPath, err := storedUpload(c, "certification")
	if err != nil {
		return err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	providerID := principal.SubjectID
	if principal.Pending {
		app := s.state.applicationByID(principal.SubjectID)
		if app == nil || app.Status != domain.RequestStatusPending {
			return fiber.NewError(fiber.StatusNotFound, "Provider not found")
		}
		app.IDVerification, app.Certification = idPath, certPath
	} else {
		acct := s.state.accountByID(principal.SubjectID)
		if acct == nil {
			return fiber.NewError(fiber.StatusNotFound, "Provider not found")
		}
		acct.IDVerification, acct.Certification = idPath, certPath
		acct.Verified = false
	}
	s.logger.Info("documents uploaded", zap.String("provider_id", providerID), zap.Bool("pending", principal.Pending))

	return c.JSON(fiber.Map{
		"message":     "Documents uploaded successfully. Please wait for admin approval.",
		"provider_id": providerID,
		"redirect_to": navigation.ProviderHome,
	})
}

// storedUpload validates one multipart file and returns the path it would be stored under.
func storedUpload(c *fiber.Ctx, field string) (string, error) {
	header, err := c.FormFile(field)
	if err != nil {
		return "", fiber.NewError(fiber.StatusUnprocessableEntity, fmt.Sprintf("%s: field required", field))
	}
	if err := checkUpload(header); err != nil {
		return "", err
	}
	return filepath.ToSlash(filepath.Join("uploads", uuid.NewString()+filepath.Ext(header.Filename))), nil
}

func checkUpload(header *multipart.FileHeader) error {
	contentType := strings.ToLower(header.Header.Get(fiber.HeaderContentType))
	if _, ok := uploadTypes[contentType]; !ok {
		return fiber.NewError(fiber.StatusBadRequest, "Only JPEG, PNG and PDF files are accepted")
	}
	if header.Size > MaxUploadSize {
		return fiber.NewError(fiber.StatusRequestEntityTooLarge, "File too large")
	}
	return nil
}

func (s *Server) listApplications(c *fiber.Ctx) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return c.JSON(s.state.applicationsWithStatus(c.Query("status")))
}

func (s *Server) approveApplication(c *fiber.Ctx) error {
	principal, _ := auth.PrincipalFromContext(c)

	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	app := s.state.applicationByID(c.Params("id"))
	if app == nil || app.Status != domain.RequestStatusPending {
		return fiber.NewError(fiber.StatusNotFound, "Request not found or already processed")
	}
	if !app.hasDocuments() {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot approve provider without ID verification and certification documents")
	}

	acct := &account{
		ID:             s.state.id(),
		Email:          app.Email,
		FullName:       app.FullName,
		PhoneNumber:    app.PhoneNumber,
		Address:        app.Address,
		PasswordHash:   app.PasswordHash,
		Role:           domain.RoleProvider,
		IDVerification: app.IDVerification,
		Certification:  app.Certification,
		Verified:       true,
	}
	s.state.accounts[acct.Email] = acct
	app.Status = domain.RequestStatusApproved
	s.logger.Info("registration approved", zap.Int("request_id", app.ID), zap.String("by", principal.Email))

	return c.JSON(fiber.Map{
		"message":         "Registration approved successfully",
		"user_id":         acct.ID,
		"provider_id":     acct.ID,
		"updatedRequests": s.state.applicationsWithStatus(string(domain.RequestStatusPending)),
	})
}

func (s *Server) rejectApplication(c *fiber.Ctx) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	app := s.state.applicationByID(c.Params("id"))
	if app == nil || app.Status != domain.RequestStatusPending {
		return fiber.NewError(fiber.StatusNotFound, "Request not found or already processed")
	}
	app.Status = domain.RequestStatusRejected
	s.logger.Info("registration rejected", zap.Int("request_id", app.ID))

	return c.JSON(fiber.Map{
		"message":         "Registration rejected successfully",
		"updatedRequests": s.state.applicationsWithStatus(string(domain.RequestStatusPending)),
	})
}

func (s *Server) listReports(c *fiber.Ctx) error {
	status := c.Query("status", string(domain.ReportStatusOpen))
	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	return c.JSON(s.state.reportsWithStatus(status))
}

func (s *Server) resolveReport(c *fiber.Ctx) error {
	return s.closeReport(c, domain.ReportStatusResolved)
}

func (s *Server) dismissReport(c *fiber.Ctx) error {
	return s.closeReport(c, domain.ReportStatusDismissed)
}

// closeReport acknowledges without the updated list, unlike registration actions.
func (s *Server) closeReport(c *fiber.Ctx, status domain.ReportStatus) error {
	s.state.mu.Lock()
	defer s.state.mu.Unlock()

	report := s.state.reportByID(c.Params("id"))
	if report == nil || report.Status != domain.ReportStatusOpen {
		return fiber.NewError(fiber.StatusNotFound, "Report not found or already closed")
	}
	report.Status = status
	return c.JSON(fiber.Map{"message": "Report " + string(status)})
}

func (s *Server) registerHomeowner(c *fiber.Ctx) error {
	fullName, email, password := c.FormValue("full_name"), strings.TrimSpace(c.FormValue("email")), c.FormValue("password")
	if fullName == "" || email == "" || password == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "full_name, email and password are required")
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.emailTaken(email) {
		return fiber.NewError(fiber.StatusBadRequest, "Email already registered")
	}
	acct := &account{
		ID:           s.state.id(),
		Email:        email,
		FullName:     fullName,
		PhoneNumber:  c.FormValue("phone_number"),
		Address:      c.FormValue("address"),
		PasswordHash: hash,
		Role:         domain.RoleHomeowner,
	}
	s.state.accounts[email] = acct

	return c.JSON(fiber.Map{
		"message":      "Homeowner created successfully",
		"user_id":      acct.ID,
		"homeowner_id": acct.ID,
	})
}

func (s *Server) registerProvider(c *fiber.Ctx) error {
	fullName, email, password := c.FormValue("full_name"), strings.TrimSpace(c.FormValue("email")), c.FormValue("password")
	if fullName == "" || email == "" || password == "" {
		return fiber.NewError(fiber.StatusUnprocessableEntity, "full_name, email and password are required")
	}
	var years *int
	if raw := c.FormValue("years_experience"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return fiber.NewError(fiber.StatusUnprocessableEntity, "years_experience must be a non-negative integer")
		}
		years = &n
	}
	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return err
	}

	s.state.mu.Lock()
	defer s.state.mu.Unlock()
	if s.state.emailTaken(email) {
		return fiber.NewError(fiber.StatusBadRequest, "Email already registered")
	}
	app := &application{
		ID:              s.state.id(),
		FullName:        fullName,
		Email:           email,
		PhoneNumber:     c.FormValue("phone_number"),
		Address:         c.FormValue("address"),
		YearsExperience: years,
		PasswordHash:    hash,
		Status:          domain.RequestStatusPending,
		RequestedAt:     time.Now().UTC(),
	}
	s.state.applications = append(s.state.applications, app)

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":         "Registration request submitted successfully. Please wait for admin approval.",
		"request_id":      app.ID,
		"needs_documents": true,
		"redirect_to":     navigation.SignInPath,
	})
}
