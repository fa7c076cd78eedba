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

package client

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"rivaas.dev/traceprop/scope"
	"rivaas.dev/traceprop/tracing"
)

var grpcStatuses = map[codes.Code]tracing.Status{
	codes.OK:                 tracing.StatusOK,
	codes.Canceled:           tracing.StatusCancelled,
	codes.Unknown:            tracing.StatusUnknownError,
	codes.InvalidArgument:    tracing.StatusInvalidArgument,
	codes.DeadlineExceeded:   tracing.StatusDeadlineExceeded,
	codes.NotFound:           tracing.StatusNotFound,
	codes.AlreadyExists:      tracing.StatusAlreadyExists,
	codes.PermissionDenied:   tracing.StatusPermissionDenied,
	codes.ResourceExhausted:  tracing.StatusResourceExhausted,
	codes.FailedPrecondition: tracing.StatusFailedPrecondition,
	codes.Aborted:            tracing.StatusAborted,
	codes.OutOfRange:         tracing.StatusOutOfRange,
	codes.Unimplemented:      tracing.StatusUnimplemented,
	codes.Internal:           tracing.StatusInternalError,
	codes.Unavailable:        tracing.StatusUnavailable,
	codes.DataLoss:           tracing.StatusDataLoss,
	codes.Unauthenticated:    tracing.StatusUnauthenticated,
}

// StatusFromGRPC maps a gRPC status code to a span status.
func StatusFromGRPC(code codes.Code) tracing.Status {
	if st, ok := grpcStatuses[code]; ok {
		return st
	}

	return tracing.StatusUnknownError
}

// UnaryClientInterceptor opens a "grpc.client" span for each unary call made
// under a current span and propagates the trace header as outgoing metadata.
func UnaryClientInterceptor() grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) (err error) {
		parent := scope.Current(ctx)
		if parent == nil {
			return invoker(ctx, method, req, reply, cc, opts...)
		}

		md, ok := metadata.FromOutgoingContext(ctx)
		if ok {
			md = md.Copy()
		} else {
			md = metadata.MD{}
		}
		var pending scope.Pending
		OnRequest(parent, tracing.OpGRPCClient, method, metadataCarrier(md), &pending)
		ctx = metadata.NewOutgoingContext(ctx, md)

		defer func() {
			if r := recover(); r != nil {
				OnFailure(&pending, fmt.Errorf("panic in grpc call: %v", r))
				panic(r)
			}
		}()

		err = invoker(ctx, method, req, reply, cc, opts...)
		if child := pending.Take(); child != nil {
			if err != nil {
				child.RecordError(err)
			}
			child.SetStatus(StatusFromGRPC(status.Code(err)))
			child.Finish()
		}

		return err
	}
}

// metadataCarrier adapts gRPC metadata to a propagation.TextMapCarrier.
type metadataCarrier metadata.MD

func (c metadataCarrier) Get(key string) string {
	if vals := metadata.MD(c).Get(key); len(vals) > 0 {
		return vals[0]
	}

	return ""
}

func (c metadataCarrier) Set(key, value string) {
	metadata.MD(c).Set(key, value)
}

func (c metadataCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}

	return keys
}
