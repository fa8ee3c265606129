package drive

import (
	"errors"
	"fmt"
)

// ErrPayloadTooLarge rejects uploads above the simple-upload ceiling before
// any network call is made.
var ErrPayloadTooLarge = errors.New("drive: payload exceeds simple upload ceiling")

// FolderEnsureError means a folder path segment could not be verified or
// created. Path holds the accumulated prefix that failed.
type FolderEnsureError struct {
	Path string
	Err  error
}

func (e *FolderEnsureError) Error() string {
	return fmt.Sprintf("drive: ensuring folder %q: %v", e.Path, e.Err)
}

func (e *FolderEnsureError) Unwrap() error {
	return e.Err
}

// UnsupportedAccountError means the remote rejected an operation that the
// user's account tier does not support. Personal OneDrive plans without a
// SharePoint Online license cannot take drive uploads through this API.
type UnsupportedAccountError struct {
	Detail string
}

func (e *UnsupportedAccountError) Error() string {
	return "drive: operation not supported by this account plan: " +
		"use a work/school account or upgrade the storage plan (" + e.Detail + ")"
}
