package gdrive

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"sync"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"
)

// Syncer uploads daily interview reports to a Drive folder. One file per
// date; repeat syncs for the same date update the existing file in place.
type Syncer struct {
	service  *drive.Service
	folderID string
	fileIDs  map[string]string
	mu       sync.Mutex
}

func NewSyncer(ctx context.Context, credPath, folderID string) (*Syncer, error) {
	creds, err := os.ReadFile(credPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}

	config, err := google.CredentialsFromJSONWithTypeAndParams(ctx, creds, google.ServiceAccount, google.CredentialsParams{Scopes: []string{drive.DriveFileScope}})
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}

	svc, err := drive.NewService(ctx, option.WithCredentials(config))
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	return &Syncer{
		service:  svc,
		folderID: folderID,
		fileIDs:  make(map[string]string),
	}, nil
}

// SyncReport uploads the JSON report for one date, replacing any previous
// upload for that date.
func (s *Syncer) SyncReport(date string, report []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	name := fmt.Sprintf("interview-pulse-%s.json", date)

	if fileID, ok := s.fileIDs[date]; ok {
		_, err := s.service.Files.Update(fileID, &drive.File{}).Media(bytes.NewReader(report)).Do()
		if err != nil {
			return fmt.Errorf("drive update: %w", err)
		}
		return nil
	}

	f, err := s.service.Files.Create(&drive.File{
		Name:     name,
		MimeType: "application/json",
		Parents:  []string{s.folderID},
	}).Media(bytes.NewReader(report)).Do()
	if err != nil {
		return fmt.Errorf("drive create: %w", err)
	}

	s.fileIDs[date] = f.Id
	return nil
}
