package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	"billtracker/internal/backup"
	applog "billtracker/internal/log"
	"billtracker/internal/metrics"
)

const maxImportBytes = 5 << 20

// attachment is the download target: it answers the current request with
// the backup file.
func attachment(w http.ResponseWriter) backup.Target {
	return backup.TargetFunc(func(_ context.Context, filename string, data []byte) error {
		NewResponse().Attachment(filename, data).Write(w)
		return nil
	})
}

func (s *Server) serializeBackup() ([]byte, error) {
	return backup.Serialize(backup.Export(s.store, s.now()))
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := s.serializeBackup()
	if err == nil {
		_, err = backup.DeliverExport(r.Context(), attachment(w), data, s.today())
	}
	s.metrics.Backup(metrics.BackupExport, err)
	if err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, err, nil)
	}
}

type shareJSON struct {
	Filename string `json:"filename"`
	Shared   bool   `json:"shared"`
}

// handleShare sends the backup through the share target. When sharing is
// unavailable or fails the backup is downloaded instead.
func (s *Server) handleShare(w http.ResponseWriter, r *http.Request) {
	data, err := s.serializeBackup()
	if err != nil {
		s.metrics.Backup(metrics.BackupShare, err)
		s.fail(w, r, ViewState{Anchor: s.today()}, err, nil)
		return
	}

	delivery, err := backup.Share(r.Context(), s.share, attachment(w), data, s.today())
	s.metrics.Backup(metrics.BackupShare, err)
	if err != nil {
		s.fail(w, r, ViewState{Anchor: s.today()}, err, nil)
		return
	}
	if !delivery.Shared {
		// The attachment has been written.
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Backup shared", applog.FieldFilename, delivery.Filename)
	if wantsJSON(r) {
		NewResponse().JSON(shareJSON{Filename: delivery.Filename, Shared: true}).Write(w)
		return
	}
	redirect(w, r, ViewState{Anchor: s.today()}, "Shared "+delivery.Filename)
}

type importJSON struct {
	Bills     int `json:"bills"`
	BillTypes int `json:"billTypes"`
}

// handleImport replaces all bills and bill types with an uploaded backup.
// Browsers post a multipart "file"; API clients may post the backup JSON
// itself with ?confirm=true.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	view := ViewState{Anchor: s.today()}
	data, confirmed, err := readImport(w, r)
	if err != nil {
		s.metrics.Backup(metrics.BackupImport, err)
		s.fail(w, r, view, err, nil)
		return
	}

	env, err := backup.Decode(data)
	if err == nil {
		err = backup.ApplyImport(r.Context(), s.store, env, confirmed)
	}
	s.metrics.Backup(metrics.BackupImport, err)
	if err != nil {
		s.fail(w, r, view, err, nil)
		return
	}

	applog.FromContext(r.Context()).InfoContext(r.Context(), "Backup imported",
		applog.FieldBillCount, len(env.Bills),
		applog.FieldTypeCount, len(env.BillTypes))
	if wantsJSON(r) {
		NewResponse().JSON(importJSON{Bills: len(env.Bills), BillTypes: len(env.BillTypes)}).Write(w)
		return
	}
	redirect(w, r, view, fmt.Sprintf("Imported %d bills", len(env.Bills)))
}

func readImport(w http.ResponseWriter, r *http.Request) ([]byte, bool, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)

	mt, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mt == "application/json" {
		confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
		data, err := io.ReadAll(r.Body)
		if err != nil {
			return nil, false, fmt.Errorf("%w: %v", errMalformedBody, err)
		}
		return data, confirmed, nil
	}

	if err := r.ParseMultipartForm(maxImportBytes); err != nil {
		return nil, false, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	confirmed, _ := strconv.ParseBool(r.FormValue("confirm"))
	file, _, err := r.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, false, fmt.Errorf("%w: no backup file selected", errMalformedBody)
		}
		return nil, false, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	return data, confirmed, nil
}
