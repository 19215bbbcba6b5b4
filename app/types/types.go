package types

import "net/http"

type Method string

const (
	Get     Method = "GET"
	Head    Method = "HEAD"
	Post    Method = "POST"
	Put     Method = "PUT"
	Patch   Method = "PATCH"
	Delete  Method = "DELETE"
	Options Method = "OPTIONS"
)

// Status is an HTTP status code as written on the status line.
type Status int

const (
	StatusOK                    Status = 200
	StatusCreated               Status = 201
	StatusNoContent             Status = 204
	StatusBadRequest            Status = 400
	StatusNotFound              Status = 404
	StatusRequestEntityTooLarge Status = 413
	StatusInternalServerError   Status = 500
	StatusNotImplemented        Status = 501
)

// Text returns the reason phrase for s, or "Status" for codes without one.
func (s Status) Text() string {
	if t := http.StatusText(int(s)); t != "" {
		return t
	}
	return "Status"
}
