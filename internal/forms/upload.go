// Package forms covers the post-booking stages: document upload, form
// submission and follow-up registration.
package forms

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/example/passport-scheduler/internal/passport"
	"github.com/example/passport-scheduler/internal/profile"
)

// Piece is one uploaded-document reference cited by the submitted form.
type Piece struct {
	Name     string `json:"name"`
	MimeType string `json:"mimeType"`
	Label    string `json:"label"`
	Type     string `json:"type"`
	Value    string `json:"value"`
}

// Uploader uploads the profile's documents once and caches the resulting
// pieces so a submission retry never re-uploads.
type Uploader struct {
	Client *passport.Client
	Log    *slog.Logger

	pieces []Piece
}

// UploadAll uploads every document and returns the pieces array for the
// form. Calling it again returns the cached result.
func (u *Uploader) UploadAll(ctx context.Context, docs []profile.Document) ([]Piece, error) {
	if u.pieces != nil {
		return u.pieces, nil
	}
	log := u.Log
	if log == nil {
		log = slog.Default()
	}

	pieces := make([]Piece, 0, len(docs))
	for _, d := range docs {
		content, err := os.ReadFile(d.Path)
		if err != nil {
			return nil, fmt.Errorf("read document %q: %w", d.Name, err)
		}
		meta := map[string]string{
			"name":     d.Name,
			"mimeType": d.MimeType,
			"label":    d.Label,
			"type":     d.Type,
		}
		ref, err := u.Client.UploadScan(ctx, filepath.Base(d.Path), d.MimeType, content, meta)
		if err != nil {
			return nil, fmt.Errorf("upload %q: %w", d.Name, err)
		}
		log.Info("document uploaded", "name", d.Name, "reference", ref)
		pieces = append(pieces, Piece{
			Name:     d.Name,
			MimeType: d.MimeType,
			Label:    d.Label,
			Type:     d.Type,
			Value:    ref,
		})
	}

	u.pieces = pieces
	return pieces, nil
}
