package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/liamg/magic"

	"streamify/internal/blobstore"
	"streamify/internal/models"
	"streamify/internal/playback"
	"streamify/internal/store"
	"streamify/internal/viewcount"
)

const (
	sniffLength              = 512
	relatedLimit             = 5
	fallbackMediaContentType = "video/mp4"
	genericBinaryContentType = "application/octet-stream"
	blobCleanupTimeout       = 10 * time.Second
)

// extensionContentTypes covers container formats the platform's mime table
// does not always know.
var extensionContentTypes = map[string]string{
	"mp4":  "video/mp4",
	"m4v":  "video/x-m4v",
	"mov":  "video/quicktime",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
	"avi":  "video/x-msvideo",
	"flv":  "video/x-flv",
	"mpg":  "video/mpeg",
	"ogg":  "video/ogg",
	"3gp":  "video/3gpp",
	"mp3":  "audio/mpeg",
	"m4a":  "audio/mp4",
	"wav":  "audio/wav",
	"flac": "audio/flac",
}

// MediaPolicy configures upload validation and playback.
type MediaPolicy struct {
	AllowedMediaTypes  []string
	DefaultContentType string
	StreamChunkBytes   int
}

// MediaService orchestrates uploads, playback and deletion of media.
type MediaService struct {
	store     store.MediaStore
	blobs     blobstore.BlobStore
	responder *playback.Responder
	logger    *slog.Logger

	allowedMediaTypes  []string
	defaultContentType string
}

// UploadInput describes one incoming upload.
type UploadInput struct {
	OwnerID      string
	Title        string
	Description  string
	Filename     string
	DeclaredType string
	Content      io.Reader
}

// OrphanBlob is a stored blob that no media record references.
type OrphanBlob struct {
	StorageKey string `json:"storage_key" yaml:"storage_key"`
	SizeBytes  int64  `json:"size_bytes" yaml:"size_bytes"`
}

// NewMediaService constructs a MediaService. View counts go to mediaStore.
func NewMediaService(mediaStore store.MediaStore, blobs blobstore.BlobStore, policy MediaPolicy, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = slog.Default()
	}
	svc := &MediaService{
		store:     mediaStore,
		blobs:     blobs,
		responder: playback.NewResponder(blobs, viewcount.NewRecorder(mediaStore, logger), policy.StreamChunkBytes),
		logger:    logger,
	}
	for _, raw := range policy.AllowedMediaTypes {
		raw = strings.ToLower(strings.TrimSpace(raw))
		if raw != "" {
			svc.allowedMediaTypes = append(svc.allowedMediaTypes, raw)
		}
	}
	svc.defaultContentType = fallbackMediaContentType
	if defaultType, err := normalizeMediaType(policy.DefaultContentType); err == nil && defaultType != "" {
		svc.defaultContentType = defaultType
	}
	return svc
}

// Upload stores the content, then persists a record pointing at it. The
// blob is removed again when the record cannot be created.
func (s *MediaService) Upload(ctx context.Context, in UploadInput) (models.Media, error) {
	var zero models.Media
	if s == nil || s.store == nil || s.blobs == nil {
		return zero, internalError(fmt.Errorf("media service is not configured"))
	}
	if in.Content == nil {
		return zero, badRequestCode(fmt.Errorf("file is required"), ErrCodeMissingRequired)
	}

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return zero, err
	}
	description, err := normalizeDescription(in.Description)
	if err != nil {
		return zero, err
	}

	buffered := bufio.NewReaderSize(in.Content, sniffLength)
	head, _ := buffered.Peek(sniffLength)
	contentType, source, err := s.resolveContentType(in.DeclaredType, head)
	if err != nil {
		return zero, err
	}
	if !mediaTypeAllowed(s.allowedMediaTypes, contentType) {
		return zero, unsupportedMediaType(fmt.Errorf("content type %s is not allowed", contentType))
	}

	id, err := store.GenerateMediaID(s.store.MediaExists)
	if err != nil {
		return zero, storeFailure(err)
	}

	filename := blobstore.SanitizeBasename(in.Filename)
	key := blobstore.GenerateKey(filename)
	size, err := s.blobs.Put(ctx, key, buffered)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return zero, ctxErr
		}
		return zero, classifyError(err)
	}

	blob := models.BlobDescriptor{
		StorageKey:  key,
		TotalLength: size,
		ContentType: contentType,
		CreatedAt:   time.Now().UTC(),
	}
	media := &models.Media{
		ID:                id,
		OwnerID:           in.OwnerID,
		Title:             title,
		Description:       description,
		Filename:          filename,
		StorageKey:        blob.StorageKey,
		ContentType:       blob.ContentType,
		ContentTypeSource: string(source),
		SizeBytes:         blob.TotalLength,
		CreatedAt:         blob.CreatedAt,
		UpdatedAt:         blob.CreatedAt,
	}
	if err := s.store.CreateMedia(ctx, media); err != nil {
		s.discardBlob(ctx, key, "create record failed")
		return zero, storeFailure(err)
	}

	s.logger.Info("media uploaded",
		"media_id", media.ID,
		"owner", media.OwnerID,
		"storage_key", key,
		"size_bytes", size,
		"content_type", contentType,
		"content_type_source", source,
	)
	return *media, nil
}

// Get returns one media record.
func (s *MediaService) Get(ctx context.Context, id string) (models.Media, error) {
	var zero models.Media
	if s == nil || s.store == nil {
		return zero, internalError(fmt.Errorf("media service is not configured"))
	}
	media, err := s.store.GetMedia(ctx, id)
	if err != nil {
		return zero, storeFailure(err)
	}
	if media == nil {
		return zero, notFound(fmt.Errorf("media not found"))
	}
	return *media, nil
}

// List returns media matching filter, newest first.
func (s *MediaService) List(ctx context.Context, filter store.MediaFilter) ([]models.Media, error) {
	if s == nil || s.store == nil {
		return nil, internalError(fmt.Errorf("media service is not configured"))
	}
	items, err := s.store.ListMedia(ctx, filter)
	if err != nil {
		return nil, storeFailure(err)
	}
	return items, nil
}

// Related returns the most viewed media other than id.
func (s *MediaService) Related(ctx context.Context, id string) ([]models.Media, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	items, err := s.store.ListRelated(ctx, id, relatedLimit)
	if err != nil {
		return nil, storeFailure(err)
	}
	return items, nil
}

// Update changes title or description after checking the caller may modify
// the record.
func (s *MediaService) Update(ctx context.Context, id string, canModify func(ownerID string) bool, update store.MediaUpdate) (models.Media, error) {
	var zero models.Media
	current, err := s.Get(ctx, id)
	if err != nil {
		return zero, err
	}
	if canModify != nil && !canModify(current.OwnerID) {
		return zero, forbidden(fmt.Errorf("only the owner may modify this media"))
	}

	if update.Title != nil {
		title, err := normalizeTitle(*update.Title)
		if err != nil {
			return zero, err
		}
		update.Title = &title
	}
	if update.Description != nil {
		description, err := normalizeDescription(*update.Description)
		if err != nil {
			return zero, err
		}
		update.Description = &description
	}

	updated, err := s.store.UpdateMedia(ctx, id, update)
	if err != nil {
		return zero, classifyError(err)
	}
	return *updated, nil
}

// Delete removes the record and then its blob. A failed blob removal leaves
// an orphan and is only logged.
func (s *MediaService) Delete(ctx context.Context, id string, canModify func(ownerID string) bool) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if canModify != nil && !canModify(current.OwnerID) {
		return forbidden(fmt.Errorf("only the owner may delete this media"))
	}

	if err := s.store.DeleteMedia(ctx, id); err != nil {
		return classifyError(err)
	}
	s.discardBlob(ctx, current.StorageKey, "media deleted")
	s.logger.Info("media deleted", "media_id", id, "storage_key", current.StorageKey)
	return nil
}

// OpenPlayback prepares a stream response. A HEAD request only describes
// the response and is never counted as a view.
func (s *MediaService) OpenPlayback(ctx context.Context, id, rangeHeader string, head bool) (*playback.Response, models.Media, error) {
	media, err := s.Get(ctx, id)
	if err != nil {
		return nil, media, err
	}

	blob := media.Blob()
	src := playback.Source{
		MediaID:     media.ID,
		StorageKey:  blob.StorageKey,
		ContentType: blob.ContentType,
		TotalLength: blob.TotalLength,
	}
	var resp *playback.Response
	if head {
		resp, err = s.responder.Describe(src, rangeHeader)
	} else {
		resp, err = s.responder.Prepare(ctx, src, rangeHeader)
	}
	if err != nil {
		return nil, media, classifyError(err)
	}
	return resp, media, nil
}

// Orphans lists stored blobs that no media record references.
func (s *MediaService) Orphans(ctx context.Context) ([]OrphanBlob, error) {
	lister, ok := s.blobs.(blobstore.Lister)
	if !ok {
		return nil, internalError(fmt.Errorf("blob store cannot list keys"))
	}
	keys, err := lister.Keys(ctx)
	if err != nil {
		return nil, classifyError(err)
	}
	referenced, err := s.store.StorageKeys(ctx)
	if err != nil {
		return nil, storeFailure(err)
	}

	out := []OrphanBlob{}
	for _, key := range keys {
		if _, ok := referenced[key]; ok {
			continue
		}
		size, err := s.blobs.Length(ctx, key)
		if errors.Is(err, blobstore.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, classifyError(err)
		}
		out = append(out, OrphanBlob{StorageKey: key, SizeBytes: size})
	}
	return out, nil
}

func (s *MediaService) discardBlob(ctx context.Context, key, reason string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), blobCleanupTimeout)
	defer cancel()
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("blob removal failed", "storage_key", key, "reason", reason, "error", err)
	}
}

// resolveContentType picks the declared type unless it is missing or
// generic, then magic-number sniffing, then stdlib detection, then the
// configured default.
func (s *MediaService) resolveContentType(declared string, head []byte) (string, models.ContentTypeSource, error) {
	declaredType, err := normalizeMediaType(declared)
	if err != nil {
		return "", "", err
	}
	if declaredType != "" && declaredType != genericBinaryContentType {
		return declaredType, models.ContentTypeSourceDeclared, nil
	}

	if sniffed := sniffContentType(head); sniffed != "" {
		return sniffed, models.ContentTypeSourceSniffed, nil
	}
	return s.defaultContentType, models.ContentTypeSourceDefault, nil
}

func sniffContentType(head []byte) string {
	if len(head) == 0 {
		return ""
	}
	if ft, _ := magic.Lookup(head); ft != nil {
		if contentType := contentTypeForExtension(ft.Extension); contentType != "" {
			return contentType
		}
	}
	detected, err := normalizeMediaType(http.DetectContentType(head))
	if err != nil || detected == genericBinaryContentType {
		return ""
	}
	return detected
}

func contentTypeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), "."))
	if ext == "" {
		return ""
	}
	if contentType, ok := extensionContentTypes[ext]; ok {
		return contentType
	}
	contentType, err := normalizeMediaType(mime.TypeByExtension("." + ext))
	if err != nil {
		return ""
	}
	return contentType
}
