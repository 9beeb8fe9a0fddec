// Package serverfn calls typed Go functions across processes over HTTP.
//
// A ServerFn pairs a path with a function body and two wire formats: one for
// its arguments and one for its result. Servers register ServerFns with a
// Registry and dispatch inbound requests to them by path; clients call the
// same ServerFn values with RunOnClient. Because both sides are built from
// one definition, they always agree on the path and encodings.
//
// Wire formats (JSON, CBOR, URL-encoded forms, multipart form data, byte and
// text streams, and binary Protocol Buffers) are interchangeable values
// implementing the Encoding interfaces. Transports adapt the small Request,
// Responder, Client, and ClientResponse interfaces; see the nethttp package
// for net/http and the serverfntest package for an in-memory harness.
//
// All errors returned by this package are *Error values carrying a Kind.
package serverfn
