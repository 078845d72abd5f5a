package images

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
)

type stubTicketStore struct {
	tickets map[uuid.UUID]*models.Ticket
	updated *models.Ticket
	getErr  error
}

func (s *stubTicketStore) GetByID(_ context.Context, id uuid.UUID) (*models.Ticket, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	ticket, ok := s.tickets[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *ticket
	return &copied, nil
}

func (s *stubTicketStore) Update(_ context.Context, ticket *models.Ticket) error {
	s.updated = ticket
	s.tickets[ticket.ID] = ticket
	return nil
}

type stubSigner struct {
	uploadErr error
}

func (s *stubSigner) SignUploadURL(object, contentType string) (string, error) {
	if s.uploadErr != nil {
		return "", s.uploadErr
	}
	return "https://storage.example.com/put/" + object + "?ct=" + contentType, nil
}

func (s *stubSigner) SignDownloadURL(object string) (string, error) {
	return "https://storage.example.com/get/" + object, nil
}

func newImageService(t *testing.T, store *stubTicketStore, signer *stubSigner) Service {
	t.Helper()
	svc, err := NewService(store, signer, 15*time.Minute, time.Hour)
	require.NoError(t, err)
	return svc
}

func TestPresignUpload(t *testing.T) {
	ticketID := uuid.New()
	store := &stubTicketStore{tickets: map[uuid.UUID]*models.Ticket{
		ticketID: {ID: ticketID, CropYear: "2025"},
	}}
	svc := newImageService(t, store, &stubSigner{})

	out, err := svc.PresignUpload(context.Background(), ticketID, PresignUploadInput{
		MimeType: "image/jpeg",
		FileName: "scale ticket 42.jpg",
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out.ImageKey, "tickets/"+ticketID.String()+"/"))
	assert.True(t, strings.HasSuffix(out.ImageKey, "scale-ticket-42.jpg"))
	assert.Contains(t, out.SignedPUTURL, out.ImageKey)
	assert.Equal(t, "image/jpeg", out.ContentType)

	require.NotNil(t, store.updated)
	require.NotNil(t, store.updated.ImageKey)
	assert.Equal(t, out.ImageKey, *store.updated.ImageKey)
}

func TestPresignUploadValidation(t *testing.T) {
	ticketID := uuid.New()
	store := &stubTicketStore{tickets: map[uuid.UUID]*models.Ticket{
		ticketID: {ID: ticketID, CropYear: "2025"},
	}}
	svc := newImageService(t, store, &stubSigner{})
	ctx := context.Background()

	cases := []struct {
		name  string
		id    uuid.UUID
		input PresignUploadInput
		code  pkgerrors.Code
	}{
		{"missing ticket id", uuid.Nil, PresignUploadInput{MimeType: "image/png", FileName: "a.png"}, pkgerrors.CodeValidation},
		{"missing mime type", ticketID, PresignUploadInput{FileName: "a.png"}, pkgerrors.CodeValidation},
		{"disallowed mime type", ticketID, PresignUploadInput{MimeType: "video/mp4", FileName: "a.mp4"}, pkgerrors.CodeValidation},
		{"missing file name", ticketID, PresignUploadInput{MimeType: "image/png"}, pkgerrors.CodeValidation},
		{"unknown ticket", uuid.New(), PresignUploadInput{MimeType: "image/png", FileName: "a.png"}, pkgerrors.CodeNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.PresignUpload(ctx, tc.id, tc.input)
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tc.code, typed.Code())
		})
	}
}

func TestPresignUploadSignerFailureLeavesTicketUntouched(t *testing.T) {
	ticketID := uuid.New()
	store := &stubTicketStore{tickets: map[uuid.UUID]*models.Ticket{
		ticketID: {ID: ticketID, CropYear: "2025"},
	}}
	svc := newImageService(t, store, &stubSigner{uploadErr: errors.New("signer unavailable")})

	_, err := svc.PresignUpload(context.Background(), ticketID, PresignUploadInput{
		MimeType: "image/png",
		FileName: "a.png",
	})
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeDependency, typed.Code())
	assert.Nil(t, store.updated)
}

func TestPresignDownload(t *testing.T) {
	ticketID := uuid.New()
	key := "tickets/" + ticketID.String() + "/abc-scan.jpg"
	store := &stubTicketStore{tickets: map[uuid.UUID]*models.Ticket{
		ticketID: {ID: ticketID, CropYear: "2025", ImageKey: &key},
	}}
	svc := newImageService(t, store, &stubSigner{})

	out, err := svc.PresignDownload(context.Background(), ticketID)
	require.NoError(t, err)
	assert.Equal(t, key, out.ImageKey)
	assert.Contains(t, out.SignedGETURL, key)
}

func TestPresignDownloadNoImage(t *testing.T) {
	ticketID := uuid.New()
	store := &stubTicketStore{tickets: map[uuid.UUID]*models.Ticket{
		ticketID: {ID: ticketID, CropYear: "2025"},
	}}
	svc := newImageService(t, store, &stubSigner{})

	_, err := svc.PresignDownload(context.Background(), ticketID)
	require.Error(t, err)
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeNotFound, typed.Code())
}
