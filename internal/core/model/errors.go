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

// Package model holds the data shared by every stage of the media assembly
// service: request and response payloads, image and video sources, staged
// frames, produced artifacts and the error taxonomy used to report failures.
package model

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-checkable classification carried by every failure
// surfaced to a caller.
type ErrorKind string

const (
	KindValidation             ErrorKind = "ValidationError"
	KindEmptyInput             ErrorKind = "EmptyInput"
	KindNotFound               ErrorKind = "NotFound"
	KindTransientIO            ErrorKind = "TransientIO"
	KindUnsupportedFormat      ErrorKind = "UnsupportedFormat"
	KindUnsupportedAudioFormat ErrorKind = "UnsupportedAudioFormat"
	KindDiskFull               ErrorKind = "DiskFull"
	KindStorageFull            ErrorKind = "StorageFull"
	KindTranscodeFailed        ErrorKind = "TranscodeFailed"
	KindProbeFailed            ErrorKind = "ProbeFailed"
	KindInvalidRange           ErrorKind = "InvalidRange"
	KindCanceled               ErrorKind = "Canceled"
	KindInternal               ErrorKind = "Internal"
)

// StatusClientClosedRequest is the non-standard status used when the caller
// disconnected before the work finished.
const StatusClientClosedRequest = 499

// HTTPStatus maps a kind onto the status code returned by the HTTP layer.
func (k ErrorKind) HTTPStatus() int {
	switch k {
	case KindValidation, KindEmptyInput, KindInvalidRange, KindUnsupportedFormat, KindUnsupportedAudioFormat:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindCanceled:
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether re-running the whole invocation may succeed.
func (k ErrorKind) Retryable() bool {
	switch k {
	case KindTransientIO, KindTranscodeFailed, KindDiskFull, KindStorageFull, KindInternal:
		return true
	default:
		return false
	}
}

// MediaError attaches a kind and the failing operation to an underlying error.
type MediaError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *MediaError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *MediaError) Unwrap() error {
	return e.Err
}

// NewError builds a MediaError. A context cancellation found anywhere in err
// overrides the requested kind so that aborted work is never reported as an
// engine or storage failure.
func NewError(kind ErrorKind, op string, err error) *MediaError {
	if errors.Is(err, context.Canceled) {
		kind = KindCanceled
	}
	return &MediaError{Kind: kind, Op: op, Err: err}
}

// Errorf is a shorthand for NewError with a formatted message.
func Errorf(kind ErrorKind, op string, format string, args ...interface{}) *MediaError {
	return NewError(kind, op, fmt.Errorf(format, args...))
}

// KindOf extracts the kind of the first MediaError in err's chain. Errors that
// were never classified report KindInternal.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var me *MediaError
	if errors.As(err, &me) {
		return me.Kind
	}
	if errors.Is(err, context.Canceled) {
		return KindCanceled
	}
	return KindInternal
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
