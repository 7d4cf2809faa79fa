package utils

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestGrpcError(t *testing.T) {
	testData := []struct {
		err  error
		code codes.Code
	}{
		{fmt.Errorf("%w: empty task id", ErrBadRequest), codes.InvalidArgument},
		{fmt.Errorf("%w: t1", ErrDuplicate), codes.AlreadyExists},
		{ErrNotFound, codes.NotFound},
		{fmt.Errorf("%w: worker w1", ErrNotFound), codes.NotFound},
		{ErrUnauthorized, codes.PermissionDenied},
		{context.DeadlineExceeded, codes.DeadlineExceeded},
		{fmt.Errorf("boom"), codes.Internal},
		{status.Error(codes.Unavailable, "down"), codes.Unavailable},
	}

	for _, test := range testData {
		assert.Equal(t, test.code, status.Code(GrpcError(test.err)), test.err.Error())
	}

	assert.Nil(t, GrpcError(nil))
}

func TestGrpcCode(t *testing.T) {
	assert.Equal(t, codes.OK, GrpcCode(nil))
	assert.Equal(t, codes.DeadlineExceeded, GrpcCode(fmt.Errorf("wait: %w", context.DeadlineExceeded)))
	assert.Equal(t, codes.NotFound, GrpcCode(status.Error(codes.NotFound, "x")))
	assert.Equal(t, codes.Unknown, GrpcCode(fmt.Errorf("plain")))
}
