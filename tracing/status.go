// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel/codes"
)

// Status is the outcome recorded on a finished span.
type Status string

const (
	StatusUnset              Status = ""
	StatusOK                 Status = "ok"
	StatusCancelled          Status = "cancelled"
	StatusUnknownError       Status = "unknown_error"
	StatusInvalidArgument    Status = "invalid_argument"
	StatusDeadlineExceeded   Status = "deadline_exceeded"
	StatusNotFound           Status = "not_found"
	StatusAlreadyExists      Status = "already_exists"
	StatusPermissionDenied   Status = "permission_denied"
	StatusResourceExhausted  Status = "resource_exhausted"
	StatusFailedPrecondition Status = "failed_precondition"
	StatusAborted            Status = "aborted"
	StatusOutOfRange         Status = "out_of_range"
	StatusUnimplemented      Status = "unimplemented"
	StatusInternalError      Status = "internal_error"
	StatusUnavailable        Status = "unavailable"
	StatusDataLoss           Status = "data_loss"
	StatusUnauthenticated    Status = "unauthenticated"
)

// StatusClientClosedRequest is the non-standard code for a request the
// client abandoned before a response was written.
const StatusClientClosedRequest = 499

var httpStatuses = map[int]Status{
	http.StatusBadRequest:            StatusInvalidArgument,
	http.StatusUnauthorized:          StatusUnauthenticated,
	http.StatusForbidden:             StatusPermissionDenied,
	http.StatusNotFound:              StatusNotFound,
	http.StatusConflict:              StatusAlreadyExists,
	http.StatusRequestEntityTooLarge: StatusFailedPrecondition,
	http.StatusTooManyRequests:       StatusResourceExhausted,
	StatusClientClosedRequest:        StatusCancelled,
	http.StatusInternalServerError:   StatusInternalError,
	http.StatusNotImplemented:        StatusUnimplemented,
	http.StatusServiceUnavailable:    StatusUnavailable,
	http.StatusGatewayTimeout:        StatusDeadlineExceeded,
}

// StatusFromHTTP maps an HTTP status code to a span status. Codes without a
// specific mapping fall back to their class.
func StatusFromHTTP(code int) Status {
	if st, ok := httpStatuses[code]; ok {
		return st
	}

	switch {
	case code >= 100 && code < 400:
		return StatusOK
	case code >= 400 && code < 500:
		return StatusInvalidArgument
	case code >= 500 && code < 600:
		return StatusInternalError
	default:
		return StatusUnknownError
	}
}

// Code returns the OpenTelemetry status code for st.
func (st Status) Code() codes.Code {
	switch st {
	case StatusUnset:
		return codes.Unset
	case StatusOK:
		return codes.Ok
	default:
		return codes.Error
	}
}
