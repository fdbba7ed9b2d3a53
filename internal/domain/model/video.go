package model

import (
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// Status represents the processing state of a video.
type Status string

const (
	StatusUploaded   Status = "UPLOADED"
	StatusProcessing Status = "PROCESSING"
	StatusReady      Status = "READY"
	StatusFailed     Status = "FAILED"
)

// Valid status transitions:
//
//	UPLOADED   -> PROCESSING
//	PROCESSING -> PROCESSING (re-entry; re-edit before the previous job finished)
//	PROCESSING -> READY
//	PROCESSING -> FAILED
//	READY      -> PROCESSING (re-edit)
//	FAILED     -> PROCESSING (retry)
var validTransitions = map[Status][]Status{
	StatusUploaded:   {StatusProcessing},
	StatusProcessing: {StatusProcessing, StatusReady, StatusFailed},
	StatusReady:      {StatusProcessing},
	StatusFailed:     {StatusProcessing},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusUploaded, StatusProcessing, StatusReady, StatusFailed:
		return true
	default:
		return false
	}
}

func (s Status) CanTransitionTo(next Status) bool {
	allowed, exists := validTransitions[s]
	if !exists {
		return false
	}
	for _, status := range allowed {
		if status == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}

// Video represents a video entity in the domain.
type Video struct {
	ID                   int64
	PublicID             uuid.UUID
	OwnerID              int64
	OwnerUsername        string
	Description          string
	StoragePath          string
	ProcessedStoragePath string
	FileSize             int64
	MimeType             string
	Duration             float64
	Status               Status
	UploadedAt           time.Time
	Version              int32
}

var (
	ErrEmptyDescription   = errors.New("description cannot be empty")
	ErrDescriptionTooLong = errors.New("description exceeds maximum length of 255 characters")
	ErrInvalidDescription = errors.New("description contains invalid characters")
	ErrInvalidOwnerID     = errors.New("owner ID cannot be zero")
	ErrInvalidStoragePath = errors.New("storage path cannot be empty")
	ErrInvalidFileSize    = errors.New("file size must be a positive number of bytes")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

const maxDescriptionLength = 255

// descriptionCharset allows printable ASCII only (space through '~'); control
// characters and all non-ASCII characters are rejected.
var descriptionCharset = regexp.MustCompile(`^[[:print:]]*$`)

// NewVideo creates a new Video in the UPLOADED state.
func NewVideo(ownerID int64, description, storagePath string, fileSize int64, mimeType string) (*Video, error) {
	if ownerID == 0 {
		return nil, ErrInvalidOwnerID
	}
	if err := validateDescription(description); err != nil {
		return nil, err
	}
	if storagePath == "" {
		return nil, ErrInvalidStoragePath
	}
	if fileSize <= 0 {
		return nil, ErrInvalidFileSize
	}

	return &Video{
		PublicID:    uuid.New(),
		OwnerID:     ownerID,
		Description: description,
		StoragePath: storagePath,
		FileSize:    fileSize,
		MimeType:    mimeType,
		Status:      StatusUploaded,
		UploadedAt:  time.Now(),
	}, nil
}

func validateDescription(description string) error {
	if description == "" {
		return ErrEmptyDescription
	}
	if len(description) > maxDescriptionLength {
		return ErrDescriptionTooLong
	}
	if !descriptionCharset.MatchString(description) {
		return ErrInvalidDescription
	}
	return nil
}

// TransitionTo attempts to change the video status. processedPath is only consulted
// when transitioning to READY; it is cleared on any transition into PROCESSING or
// FAILED, preserving the invariant that processedStoragePath is non-empty iff READY.
func (v *Video) TransitionTo(next Status, processedPath string) error {
	if !next.IsValid() {
		return ErrInvalidTransition
	}
	if !v.Status.CanTransitionTo(next) {
		return ErrInvalidTransition
	}

	switch next {
	case StatusReady:
		v.ProcessedStoragePath = processedPath
	default:
		v.ProcessedStoragePath = ""
	}

	v.Status = next
	return nil
}

// SetDescription updates the owner-editable description field.
func (v *Video) SetDescription(description string) error {
	if err := validateDescription(description); err != nil {
		return err
	}
	v.Description = description
	return nil
}

// IsReady returns true if the video is ready for download.
func (v *Video) IsReady() bool {
	return v.Status == StatusReady
}

// IsFailed returns true if the video processing failed.
func (v *Video) IsFailed() bool {
	return v.Status == StatusFailed
}

// IsOwnedBy reports whether username is the video's owner.
func (v *Video) IsOwnedBy(username string) bool {
	return v.OwnerUsername == username
}
