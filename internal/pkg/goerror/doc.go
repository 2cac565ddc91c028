// Package goerror defines the error shape shared by usecases and the HTTP router.
//
// Outbound adapters translate driver errors into ErrNotFound or ErrConflict.
// Usecases translate those into *Error values through NewServer, NewBusiness,
// NewInvalidInput and NewInvalidFormat, which the router renders.
package goerror
