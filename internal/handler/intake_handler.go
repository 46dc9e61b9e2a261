package handler

import (
	"context"
	"mime/multipart"

	"github.com/gin-gonic/gin"

	"github.com/kesbangpol-dev/perizinan-api/internal/models"
	"github.com/kesbangpol-dev/perizinan-api/internal/service"
	appErrors "github.com/kesbangpol-dev/perizinan-api/pkg/errors"
	"github.com/kesbangpol-dev/perizinan-api/pkg/response"
)

const msgSaved = "Data berhasil disimpan"

type intakeService interface {
	Submit(ctx context.Context, svc models.ServiceType, fields map[string]string, files map[string]*service.FileUpload) (*models.Submission, error)
}

// IntakeHandler exposes the permit submission endpoints.
type IntakeHandler struct {
	service intakeService
}

// NewIntakeHandler constructs the handler.
func NewIntakeHandler(service intakeService) *IntakeHandler {
	return &IntakeHandler{service: service}
}

// SubmitPenelitian accepts research permit applications.
func (h *IntakeHandler) SubmitPenelitian(c *gin.Context) {
	h.submit(c, models.ServicePenelitian)
}

// SubmitMagang accepts internship permit applications.
func (h *IntakeHandler) SubmitMagang(c *gin.Context) {
	h.submit(c, models.ServiceMagang)
}

func (h *IntakeHandler) submit(c *gin.Context, svc models.ServiceType) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "intake service not configured"))
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid multipart payload"))
		return
	}

	fields := make(map[string]string, len(form.Value))
	for name, values := range form.Value {
		if len(values) > 0 {
			fields[name] = values[0]
		}
	}

	files := make(map[string]*service.FileUpload, len(form.File))
	var opened []multipart.File
	defer func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}()
	for name, headers := range form.File {
		if len(headers) == 0 {
			continue
		}
		fh := headers[0]
		src, err := fh.Open()
		if err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open uploaded file"))
			return
		}
		opened = append(opened, src)
		files[name] = &service.FileUpload{
			Filename: fh.Filename,
			Size:     fh.Size,
			MimeType: fh.Header.Get("Content-Type"),
			Content:  src,
		}
	}

	if _, err := h.service.Submit(c.Request.Context(), svc, fields, files); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, msgSaved)
}
