package api

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orrery/internal/journal"
	"github.com/starford/orrery/internal/scantree"
	"github.com/starford/orrery/internal/service"
)

// maxImportBodies bounds one web import request.
const maxImportBodies = 5000

// ImportBodiesRequest is the request body for importing web catalogue bodies.
type ImportBodiesRequest struct {
	Source string          `json:"source" example:"spansh" validate:"required"`
	Bodies []*journal.Scan `json:"bodies" validate:"required"`
}

// Validate checks the request shape.
func (r ImportBodiesRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Source, validation.Required, validation.By(webSource)),
		validation.Field(&r.Bodies, validation.Required, validation.Length(1, maxImportBodies)),
	)
}

func webSource(v interface{}) error {
	s, _ := v.(string)
	src, err := journal.ParseDataSource(s)
	if err != nil {
		return err
	}
	if !src.IsWeb() {
		return errors.New("must be a web catalogue (edsm or spansh)")
	}
	return nil
}

// IngestResponse is returned for one ingested journal record (aliased from
// the domain layer).
type IngestResponse = service.IngestResult

// ImportResponse is returned after a web import (aliased from the domain
// layer).
type ImportResponse = service.ImportResult

// SystemListResponse wraps the known systems.
type SystemListResponse struct {
	Systems []scantree.SystemInfo `json:"systems" validate:"required"`
	Total   int                   `json:"total" example:"3" validate:"required"`
}

// BarycentreResponse wraps the reconciled display tree.
type BarycentreResponse struct {
	System string               `json:"system" example:"Sol" validate:"required"`
	Roots  []*scantree.NodeView `json:"roots" validate:"required"`
}

// PendingResponse reports the deferred queue.
type PendingResponse struct {
	Pending map[journal.Kind]int `json:"pending" validate:"required"`
	Total   int                  `json:"total" example:"2" validate:"required"`
}

// UploadResponse is returned after a journal file upload.
type UploadResponse struct {
	Filename   string `json:"filename" example:"Journal.2026-10-19T101010.01.log" validate:"required"`
	Records    int    `json:"records" example:"120" validate:"required"`
	Attached   int    `json:"attached"`
	Deferred   int    `json:"deferred"`
	Rejected   int    `json:"rejected"`
	Duplicates int    `json:"duplicates"`
	Skipped    int    `json:"skipped"`
}
