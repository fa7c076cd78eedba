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
	"strings"
)

// Request is the sanitized request metadata attached to a transaction.
type Request struct {
	Method      string
	URL         string
	QueryString string
	Headers     map[string]string
	// Cookies is nil unless PII is allowed and the request carried cookies.
	Cookies *string
}

// sensitiveHeaders are dropped unless PII is allowed. Keys are canonical.
var sensitiveHeaders = map[string]bool{
	"X-Forwarded-For": true,
	"Authorization":   true,
	"Cookie":          true,
}

// ResolveRequest builds the metadata record for r. Repeated header values are
// joined with ",". Authorization, Cookie and X-Forwarded-For (any case) and
// the cookie field are only included when sendDefaultPII is true.
func ResolveRequest(r *http.Request, sendDefaultPII bool) *Request {
	req := &Request{
		Method:      r.Method,
		URL:         requestURL(r),
		QueryString: r.URL.RawQuery,
		Headers:     make(map[string]string, len(r.Header)),
	}

	for name, values := range r.Header {
		canonical := http.CanonicalHeaderKey(name)
		if !sendDefaultPII && sensitiveHeaders[canonical] {
			continue
		}
		if len(values) == 0 {
			continue
		}
		if prev, ok := req.Headers[canonical]; ok {
			req.Headers[canonical] = prev + "," + strings.Join(values, ",")
			continue
		}
		req.Headers[canonical] = strings.Join(values, ",")
	}

	if sendDefaultPII {
		if cookies := headerValues(r.Header, "Cookie"); len(cookies) > 0 {
			joined := strings.Join(cookies, ",")
			req.Cookies = &joined
		}
	}

	return req
}

// headerValues collects name's values regardless of key case.
func headerValues(h http.Header, name string) []string {
	var out []string
	for k, v := range h {
		if strings.EqualFold(k, name) {
			out = append(out, v...)
		}
	}

	return out
}

// requestURL rebuilds the absolute URL of r without its query string.
func requestURL(r *http.Request) string {
	scheme := r.URL.Scheme
	if scheme == "" {
		scheme = "http"
		if r.TLS != nil {
			scheme = "https"
		}
	}

	host := r.Host
	if host == "" {
		host = r.URL.Host
	}

	return scheme + "://" + host + r.URL.EscapedPath()
}
