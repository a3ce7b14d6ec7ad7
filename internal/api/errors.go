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
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jaycherian/gcp-go-media-assembly/internal/core/model"
)

// respondError writes the {error, kind} body with the status derived from the
// error kind.
func respondError(c *gin.Context, err error) {
	kind := model.KindOf(err)
	status := kind.HTTPStatus()

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		kind, status = model.KindValidation, http.StatusRequestEntityTooLarge
	}

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "request failed", "path", c.FullPath(), "kind", kind, "error", err)
	} else {
		slog.WarnContext(c.Request.Context(), "request rejected", "path", c.FullPath(), "kind", kind, "error", err)
	}
	c.AbortWithStatusJSON(status, model.ErrorResponse{Error: err.Error(), Kind: kind})
}

func badRequest(op, format string, args ...interface{}) error {
	return model.Errorf(model.KindValidation, op, format, args...)
}
