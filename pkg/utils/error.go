package utils

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	ErrBadRequest   = fmt.Errorf("Bad request")
	ErrDuplicate    = fmt.Errorf("Duplicate identifier")
	ErrNotFound     = fmt.Errorf("Not found")
	ErrParse        = fmt.Errorf("Parse error")
	ErrUnauthorized = fmt.Errorf("Not authorized")
	ErrUnknownType  = fmt.Errorf("Unrecognized task type")
)

// Convert errors to errors with grpc status codes
func GrpcError(err error) error {
	if err == nil {
		return nil
	}

	if _, ok := status.FromError(err); ok {
		return err
	}

	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, ErrParse):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, ErrDuplicate):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return status.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	}
	return status.Error(codes.Internal, err.Error())
}

// Returns the grpc status code carried by an error, if any.
func GrpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return codes.DeadlineExceeded
	}
	if errors.Is(err, context.Canceled) {
		return codes.Canceled
	}
	return status.Code(err)
}
