package service

import (
	"context"
	"errors"
	"io"
	"net/http"

	"critiq/apierror"
	"critiq/logger"
	"critiq/media"
	"critiq/notify"
	"critiq/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Notifier creates notifications off the request path.
type Notifier interface {
	Notify(req notify.Request)
}

// Broadcaster emits real-time events to a websocket room.
type Broadcaster interface {
	EmitToRoom(room, event string, payload interface{})
}

// ImageUploader prepares and stores an uploaded image, returning its URL.
type ImageUploader interface {
	UploadImage(ctx context.Context, file io.Reader, folder string) (string, error)
}

// Image folders on the media host.
const (
	FolderAvatars = "avatars"
	FolderCovers  = "covers"
	FolderReviews = "reviews"
)

// ParseID converts a hex id supplied by a client, returning 400 with message
// when it is malformed.
func ParseID(raw, message string) (primitive.ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(raw)
	if err != nil {
		return primitive.NilObjectID, apierror.BadRequest(message)
	}
	return id, nil
}

// storeErr maps repository errors to API errors. resource names what was
// looked up.
func storeErr(err error, resource string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apierror.NotFound(resource)
	case errors.Is(err, repository.ErrDuplicate):
		return apierror.Conflict(resource + " already exists")
	case errors.Is(err, context.DeadlineExceeded):
		return apierror.New(http.StatusGatewayTimeout, "request timed out").Wrap(err)
	default:
		return apierror.Internal("", err)
	}
}

// uploadErr reports a file that is not an image as the client's fault and
// any other upload failure as a server error carrying message.
func uploadErr(message string, err error) error {
	if errors.Is(err, media.ErrInvalidImage) {
		return apierror.BadRequest("File is not a supported image").Wrap(err)
	}
	return apierror.Internal(message, err)
}

// bestEffort logs a failed follow-up step that must not fail the request.
func bestEffort(step string, err error, fields ...zap.Field) {
	if err == nil {
		return
	}
	logger.Log.Warn("Follow-up step failed", append(fields, zap.String("step", step), zap.Error(err))...)
}
