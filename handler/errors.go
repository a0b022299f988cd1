package handler

import "errors"

var (
	// ErrNilResponse indicates a handler returned nil instead of a Response.
	ErrNilResponse = errors.New("handler returned nil response")
	// ErrBinderNotApplicable lets a binder skip requests it does not handle.
	ErrBinderNotApplicable = errors.New("binder not applicable")
)
