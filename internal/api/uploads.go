// Copyright 2024 Google, LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/scratch"
)

// form gives uniform access to request fields whether they came as JSON or
// as a form, and stages uploaded files into a scratch session.
type form struct {
	c       *gin.Context
	s       *Server
	json    map[string]interface{}
	session *scratch.Session
}

func isForm(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == gin.MIMEMultipartPOSTForm || ct == gin.MIMEPOSTForm
}

// readForm parses the request body. Callers must call close.
func (s *Server) readForm(c *gin.Context) (*form, error) {
	f := &form{c: c, s: s}
	if isForm(c) {
		if c.ContentType() == gin.MIMEMultipartPOSTForm {
			if _, err := c.MultipartForm(); err != nil {
				return nil, formError(err)
			}
		}
		return f, nil
	}
	if err := c.ShouldBindJSON(&f.json); err != nil {
		return nil, formError(err)
	}
	return f, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return model.NewError(model.KindValidation, "read-request", err)
}

func (f *form) close() {
	if f.session != nil {
		_ = f.session.End()
	}
}

// value returns a string field and whether it was present.
func (f *form) value(name string) (string, bool) {
	if f.json == nil {
		v, ok := f.c.GetPostForm(name)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}
	switch v := f.json[name].(type) {
	case string:
		return strings.TrimSpace(v), strings.TrimSpace(v) != ""
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), true
	default:
		return "", false
	}
}

// number parses a numeric field; absent fields return nil.
func (f *form) number(name string) (*float64, error) {
	raw, ok := f.value(name)
	if !ok {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, model.Errorf(model.KindInvalidRange, "read-request", "%s must be a number, got %q", name, raw)
	}
	return &v, nil
}

// trimRange returns the requested range, or nil when neither bound is set.
func (f *form) trimRange() (*model.TrimRange, error) {
	start, err := f.number("start")
	if err != nil {
		return nil, err
	}
	end, err := f.number("end")
	if err != nil {
		return nil, err
	}
	if start == nil && end == nil {
		return nil, nil
	}
	if start == nil || end == nil {
		return nil, model.Errorf(model.KindInvalidRange, "read-request", "both start and end are required")
	}
	return &model.TrimRange{StartSeconds: *start, EndSeconds: *end}, nil
}

// source resolves a media field. An uploaded file under name wins over a
// locator string with the same name. ok is false when neither is present.
func (f *form) source(name string) (src model.Source, ok bool, err error) {
	if f.json == nil && f.c.ContentType() == gin.MIMEMultipartPOSTForm {
		if fh, ferr := f.c.FormFile(name); ferr == nil {
			if f.session == nil {
				if f.session, err = f.s.scratch.Begin(); err != nil {
					return model.Source{}, false, err
				}
			}
			dst := f.session.Path(uploadName(name, fh.Filename))
			if err := f.c.SaveUploadedFile(fh, dst); err != nil {
				return model.Source{}, false, model.NewError(model.KindTransientIO, "save-upload", err)
			}
			return model.LocalFile(dst), true, nil
		}
	}
	raw, present := f.value(name)
	if !present {
		return model.Source{}, false, nil
	}
	src, err = f.s.resolver.Resolve(raw)
	return src, err == nil, err
}

// uploadName keeps only the extension of the client file name.
func uploadName(field, clientName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(clientName)))
	if len(ext) > 8 || strings.ContainsAny(ext, `/\ `) {
		ext = ""
	}
	return "upload-" + field + ext
}
