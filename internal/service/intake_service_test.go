package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kesbangpol-dev/perizinan-api/internal/models"
	appErrors "github.com/kesbangpol-dev/perizinan-api/pkg/errors"
)

type submissionStoreStub struct {
	appended []*models.Submission
	err      error
}

func (s *submissionStoreStub) Append(ctx context.Context, submission *models.Submission) error {
	if s.err != nil {
		return s.err
	}
	if submission.ID == "" {
		submission.ID = fmt.Sprintf("sub-%d", len(s.appended)+1)
	}
	s.appended = append(s.appended, submission)
	return nil
}

type blobStoreStub struct {
	objects map[string][]byte
	types   map[string]string
	failOn  int // 1-based call index that fails, 0 = never
	calls   int
}

func newBlobStoreStub() *blobStoreStub {
	return &blobStoreStub{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (s *blobStoreStub) Put(ctx context.Context, objectName string, r io.Reader, size int64, contentType string) (string, error) {
	s.calls++
	if s.failOn > 0 && s.calls == s.failOn {
		return "", fmt.Errorf("stream write aborted")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.objects[objectName] = data
	s.types[objectName] = contentType
	return "https://storage.local/uploads/" + objectName, nil
}

func pdfUpload(name string) *FileUpload {
	content := []byte("%PDF-1.4 test document")
	return &FileUpload{
		Filename: name,
		Size:     int64(len(content)),
		MimeType: "application/pdf",
		Content:  bytes.NewReader(content),
	}
}

func validPenelitianFields() map[string]string {
	fields := map[string]string{}
	for _, name := range penelitianDefinition.RequiredFields {
		fields[name] = "isi " + name
	}
	return fields
}

func validMagangFields() map[string]string {
	fields := map[string]string{}
	for _, name := range magangDefinition.RequiredFields {
		fields[name] = "isi " + name
	}
	return fields
}

func allSlotsPDF() map[string]*FileUpload {
	return map[string]*FileUpload{
		SlotSuratPengantar: pdfUpload("surat.pdf"),
		SlotProposal:       pdfUpload("proposal.pdf"),
		SlotKTP:            pdfUpload("ktp.pdf"),
	}
}

func newTestService(repo *submissionStoreStub, blobs *blobStoreStub) *IntakeService {
	return NewIntakeService(repo, blobs, nil, nil, IntakeServiceConfig{})
}

func TestSubmitPenelitianSuccess(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	fields := validPenelitianFields()
	fields["letterNumber"] = "070/123/IV/2024"
	sub, err := svc.Submit(context.Background(), models.ServicePenelitian, fields, allSlotsPDF())
	require.NoError(t, err)

	require.Len(t, repo.appended, 1)
	assert.Equal(t, "permohonan_penelitian", sub.Collection)
	assert.Len(t, blobs.objects, 3)

	var payload map[string]string
	require.NoError(t, json.Unmarshal(sub.Payload, &payload))
	for _, name := range penelitianDefinition.RequiredFields {
		assert.Equal(t, "isi "+name, payload[name])
	}
	assert.Equal(t, "070/123/IV/2024", payload["letterNumber"])
	assert.Contains(t, payload["suratPengantarUrl"], "https://storage.local/uploads/")
	assert.Contains(t, payload["proposalUrl"], "https://storage.local/uploads/")
	assert.Contains(t, payload["ktpUrl"], "https://storage.local/uploads/")
	// Object names keep the original filename behind a random prefix.
	assert.Contains(t, payload["proposalUrl"], "proposal.pdf")
}

func TestSubmitReportsFirstMissingFieldOnly(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	fields := validMagangFields()
	delete(fields, "supervisorName")
	delete(fields, "location")

	_, err := svc.Submit(context.Background(), models.ServiceMagang, fields, allSlotsPDF())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "supervisorName is required", appErr.Message)
	assert.Empty(t, repo.appended)
	assert.Zero(t, blobs.calls)
}

func TestSubmitEmptyStringFieldCountsAsMissing(t *testing.T) {
	svc := newTestService(&submissionStoreStub{}, newBlobStoreStub())

	fields := validPenelitianFields()
	fields["institution"] = "   "
	_, err := svc.Submit(context.Background(), models.ServicePenelitian, fields, allSlotsPDF())
	require.Error(t, err)
	assert.Equal(t, "institution is required", appErrors.FromError(err).Message)
}

func TestSubmitMissingFileSlot(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	files := allSlotsPDF()
	delete(files, SlotProposal)
	_, err := svc.Submit(context.Background(), models.ServicePenelitian, validPenelitianFields(), files)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "File proposalFile is required", appErr.Message)
	assert.Empty(t, repo.appended)
	assert.Zero(t, blobs.calls)
}

func TestSubmitRejectsDisallowedMimeBeforeAnyUpload(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	files := allSlotsPDF()
	exe := []byte("MZ\x90\x00 executable")
	files[SlotProposal] = &FileUpload{
		Filename: "proposal.exe",
		Size:     int64(len(exe)),
		MimeType: "application/octet-stream",
		Content:  bytes.NewReader(exe),
	}
	_, err := svc.Submit(context.Background(), models.ServicePenelitian, validPenelitianFields(), files)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Equal(t, "File proposalFile must be a PDF, JPEG, or PNG", appErr.Message)
	assert.Empty(t, repo.appended)
	assert.Zero(t, blobs.calls, "no slot may upload when any slot fails validation")
}

func TestSubmitOversizeFileRejected(t *testing.T) {
	svc := NewIntakeService(&submissionStoreStub{}, newBlobStoreStub(), nil, nil, IntakeServiceConfig{MaxFileSize: 8})

	files := allSlotsPDF()
	_, err := svc.Submit(context.Background(), models.ServicePenelitian, validPenelitianFields(), files)
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusBadRequest, appErr.Status)
	assert.Contains(t, appErr.Message, "File suratPengantarFile exceeds")
}

func TestSubmitUploadFailureLeavesEarlierBlobsOrphaned(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	blobs.failOn = 2
	svc := newTestService(repo, blobs)

	_, err := svc.Submit(context.Background(), models.ServicePenelitian, validPenelitianFields(), allSlotsPDF())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, appErrors.MsgSaveFailed, appErr.Message)
	// The first upload went through and is not cleaned up.
	assert.Len(t, blobs.objects, 1)
	assert.Empty(t, repo.appended)
}

func TestSubmitPersistenceFailureSurfacesGenericMessage(t *testing.T) {
	repo := &submissionStoreStub{err: fmt.Errorf("connection reset")}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	_, err := svc.Submit(context.Background(), models.ServiceMagang, validMagangFields(), allSlotsPDF())
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, appErrors.MsgSaveFailed, appErr.Message)
	// Uploads completed before the failing append stay in storage.
	assert.Len(t, blobs.objects, 3)
}

func TestSubmitTwiceAppendsTwoRecords(t *testing.T) {
	repo := &submissionStoreStub{}
	svc := newTestService(repo, newBlobStoreStub())

	for i := 0; i < 2; i++ {
		_, err := svc.Submit(context.Background(), models.ServiceMagang, validMagangFields(), allSlotsPDF())
		require.NoError(t, err)
	}
	assert.Len(t, repo.appended, 2)
}

func TestSubmitUnknownServiceType(t *testing.T) {
	svc := newTestService(&submissionStoreStub{}, newBlobStoreStub())

	_, err := svc.Submit(context.Background(), models.ServiceType("skck"), map[string]string{}, nil)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, appErrors.FromError(err).Status)
}

func TestSubmitDetectsMimeWhenHeaderMissing(t *testing.T) {
	repo := &submissionStoreStub{}
	blobs := newBlobStoreStub()
	svc := newTestService(repo, blobs)

	files := allSlotsPDF()
	png := append([]byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}, make([]byte, 64)...)
	files[SlotKTP] = &FileUpload{
		Filename: "ktp.png",
		Size:     int64(len(png)),
		Content:  bytes.NewReader(png),
	}
	_, err := svc.Submit(context.Background(), models.ServicePenelitian, validPenelitianFields(), files)
	require.NoError(t, err)
	require.Len(t, repo.appended, 1)
}
