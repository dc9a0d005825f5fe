// Package cos holds small typed errors shared across the broker's
// internal packages, adapted from aistore's cmn/cos error helpers
// (ErrNotFound and friends) down to the handful this broker needs.
/*
 * Copyright (c) 2018-2023, NVIDIA CORPORATION. All rights reserved.
 */
package cos

import "fmt"

type (
	ErrNotFound struct {
		what string
	}
	ErrResourceExists struct {
		what string
	}
	ErrBadRequest struct {
		reason string
	}
)

func NewErrNotFound(format string, a ...any) *ErrNotFound {
	return &ErrNotFound{fmt.Sprintf(format, a...)}
}

func (e *ErrNotFound) Error() string { return e.what + " does not exist" }

func IsErrNotFound(err error) bool {
	_, ok := err.(*ErrNotFound)
	return ok
}

func NewErrResourceExists(format string, a ...any) *ErrResourceExists {
	return &ErrResourceExists{fmt.Sprintf(format, a...)}
}

func (e *ErrResourceExists) Error() string { return e.what + " already exists" }

func IsErrResourceExists(err error) bool {
	_, ok := err.(*ErrResourceExists)
	return ok
}

func NewErrBadRequest(format string, a ...any) *ErrBadRequest {
	return &ErrBadRequest{fmt.Sprintf(format, a...)}
}

func (e *ErrBadRequest) Error() string { return e.reason }

func IsErrBadRequest(err error) bool {
	_, ok := err.(*ErrBadRequest)
	return ok
}
