// errors.go: structured error wrapping for the pipeline's operational error callback
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package styx

import (
	goerrors "github.com/agilira/go-errors"
)

// Operation codes reported through Config.ErrorCallback, generalizing the
// teacher's single errNoCurrentFile sentinel to every stage of the
// pipeline that can fail in the background, away from any caller able to
// receive a direct return value.
const (
	OpRotate      = "rotate"
	OpCompress    = "compress"
	OpChecksum    = "checksum"
	OpWrite       = "write"
	OpOpen        = "open"
	OpCleanup     = "cleanup"
	OpConfigWatch = "config_watch"
)

// wrapOpError attaches an operation code to err so callers can
// errors.As/errors.Is against it through the stdlib errors package. Used
// at every site that reports through Config.ErrorCallback instead of
// returning the error directly to a caller.
func wrapOpError(op string, err error) error {
	if err == nil {
		return nil
	}
	return goerrors.Wrap(err, op, "styx: "+op+" failed")
}

// errorCode extracts the operation code previously attached by
// wrapOpError, if any.
func errorCode(err error) (string, bool) {
	var coded *goerrors.Error
	if goerrors.As(err, &coded) {
		return coded.Code, true
	}
	return "", false
}
