package handler

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"regapi/internal/service"
	"regapi/internal/storage"
)

const marksheetField = "marksheet_files"

var singleFileFields = map[string]func(*service.FileBundle, *storage.Payload){
	"photo_file":                 func(b *service.FileBundle, p *storage.Payload) { b.Photo = p },
	"signature_file":             func(b *service.FileBundle, p *storage.Payload) { b.Signature = p },
	"citizenship_file":           func(b *service.FileBundle, p *storage.Payload) { b.Citizenship = p },
	"character_certificate_file": func(b *service.FileBundle, p *storage.Payload) { b.CharacterCertificate = p },
}

// parseFileBundle reads the upload form into a FileBundle. Empty parts count
// as absent. Repeated marksheet_files take their position as ordinal while
// marksheet_files[n] carries it explicitly. The returned func closes every
// opened part and must always be called.
func parseFileBundle(c *fiber.Ctx) (service.FileBundle, func(), error) {
	var (
		bundle  service.FileBundle
		closers []io.Closer
	)
	closeAll := func() {
		for _, cl := range closers {
			_ = cl.Close()
		}
	}

	form, err := c.MultipartForm()
	if err != nil {
		return bundle, closeAll, err
	}

	open := func(fh *multipart.FileHeader) (*storage.Payload, error) {
		if fh == nil || fh.Size == 0 {
			return nil, nil
		}
		f, err := fh.Open()
		if err != nil {
			return nil, err
		}
		closers = append(closers, f)

		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		return &storage.Payload{Filename: fh.Filename, ContentType: ct, Size: fh.Size, Reader: f}, nil
	}

	for field, set := range singleFileFields {
		fhs := form.File[field]
		if len(fhs) == 0 {
			continue
		}
		p, err := open(fhs[0])
		if err != nil {
			return bundle, closeAll, err
		}
		if p != nil {
			set(&bundle, p)
		}
	}

	for i, fh := range form.File[marksheetField] {
		p, err := open(fh)
		if err != nil {
			return bundle, closeAll, err
		}
		bundle.Marksheets = append(bundle.Marksheets, service.MarksheetUpload{Ordinal: i, File: p})
	}
	for key, fhs := range form.File {
		n, indexed := marksheetIndex(key)
		if !indexed || len(fhs) == 0 {
			continue
		}
		p, err := open(fhs[0])
		if err != nil {
			return bundle, closeAll, err
		}
		bundle.Marksheets = append(bundle.Marksheets, service.MarksheetUpload{Ordinal: n, File: p})
	}

	return bundle, closeAll, nil
}

// marksheetIndex parses "marksheet_files[n]".
func marksheetIndex(key string) (int, bool) {
	rest, found := strings.CutPrefix(key, marksheetField+"[")
	if !found {
		return 0, false
	}
	rest, found = strings.CutSuffix(rest, "]")
	if !found {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}
