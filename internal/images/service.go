package images

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/prairieworks/grainledger-backend/pkg/db/models"
	pkgerrors "github.com/prairieworks/grainledger-backend/pkg/errors"
)

type ticketStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Ticket, error)
	Update(ctx context.Context, ticket *models.Ticket) error
}

type urlSigner interface {
	SignUploadURL(object, contentType string) (string, error)
	SignDownloadURL(object string) (string, error)
}

// Scanned tickets arrive as photos or PDFs from the scale house.
var allowedMimeTypes = []string{"image/png", "image/jpeg", "image/webp", "application/pdf"}

// PresignUploadInput models a request for a ticket image upload URL.
type PresignUploadInput struct {
	MimeType string `json:"mime_type" validate:"required"`
	FileName string `json:"file_name" validate:"required"`
}

// PresignUploadOutput carries the signed PUT URL the client uploads to.
type PresignUploadOutput struct {
	ImageKey     string    `json:"image_key"`
	SignedPUTURL string    `json:"signed_put_url"`
	ContentType  string    `json:"content_type"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// PresignDownloadOutput carries the signed GET URL for a stored image.
type PresignDownloadOutput struct {
	ImageKey     string    `json:"image_key"`
	SignedGETURL string    `json:"signed_get_url"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Service issues signed URLs for ticket image storage.
type Service interface {
	PresignUpload(ctx context.Context, ticketID uuid.UUID, input PresignUploadInput) (*PresignUploadOutput, error)
	PresignDownload(ctx context.Context, ticketID uuid.UUID) (*PresignDownloadOutput, error)
}

type service struct {
	tickets     ticketStore
	signer      urlSigner
	uploadTTL   time.Duration
	downloadTTL time.Duration
}

// NewService constructs an image service backed by the ticket store and URL signer.
func NewService(tickets ticketStore, signer urlSigner, uploadTTL, downloadTTL time.Duration) (Service, error) {
	if tickets == nil {
		return nil, fmt.Errorf("ticket store required")
	}
	if signer == nil {
		return nil, fmt.Errorf("url signer required")
	}
	if uploadTTL <= 0 {
		return nil, fmt.Errorf("upload ttl must be positive")
	}
	if downloadTTL <= 0 {
		return nil, fmt.Errorf("download ttl must be positive")
	}
	return &service{
		tickets:     tickets,
		signer:      signer,
		uploadTTL:   uploadTTL,
		downloadTTL: downloadTTL,
	}, nil
}

func (s *service) PresignUpload(ctx context.Context, ticketID uuid.UUID, input PresignUploadInput) (*PresignUploadOutput, error) {
	if ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	mimeType := strings.TrimSpace(input.MimeType)
	if mimeType == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type is required")
	}
	if !isAllowedMime(mimeType) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "mime_type not allowed for ticket images")
	}

	fileName := strings.TrimSpace(input.FileName)
	if fileName == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "file_name is required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading ticket")
	}

	imageKey := buildImageKey(ticketID, fileName)
	signedURL, err := s.signer.SignUploadURL(imageKey, mimeType)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign upload url")
	}

	ticket.ImageKey = &imageKey
	if err := s.tickets.Update(ctx, ticket); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "storing image key")
	}

	return &PresignUploadOutput{
		ImageKey:     imageKey,
		SignedPUTURL: signedURL,
		ContentType:  mimeType,
		ExpiresAt:    time.Now().Add(s.uploadTTL),
	}, nil
}

func (s *service) PresignDownload(ctx context.Context, ticketID uuid.UUID) (*PresignDownloadOutput, error) {
	if ticketID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "ticket id is required")
	}

	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "loading ticket")
	}
	if ticket.ImageKey == nil || *ticket.ImageKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "ticket has no stored image")
	}

	signedURL, err := s.signer.SignDownloadURL(*ticket.ImageKey)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sign download url")
	}

	return &PresignDownloadOutput{
		ImageKey:     *ticket.ImageKey,
		SignedGETURL: signedURL,
		ExpiresAt:    time.Now().Add(s.downloadTTL),
	}, nil
}

func isAllowedMime(mimeType string) bool {
	for _, candidate := range allowedMimeTypes {
		if strings.EqualFold(candidate, mimeType) {
			return true
		}
	}
	return false
}

func buildImageKey(ticketID uuid.UUID, fileName string) string {
	cleanName := sanitizeFileName(fileName)
	if cleanName == "" {
		cleanName = "scan"
	}
	return fmt.Sprintf("tickets/%s/%s-%s", ticketID.String(), uuid.NewString(), cleanName)
}

func sanitizeFileName(name string) string {
	clean := path.Base(strings.TrimSpace(name))
	var b strings.Builder
	b.Grow(len(clean))
	for _, r := range clean {
		switch {
		case r == '/' || r == '\\' || unicode.IsControl(r):
			continue
		case unicode.IsSpace(r):
			b.WriteRune('-')
		default:
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-_.")
}
