/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package logtest contains log.FieldLogger implementations for tests:
// a Recorder that captures entries for later inspection and a simple
// JSON logger writing to an arbitrary io.Writer. The approach follows
// httptest (https://golang.org/pkg/net/http/httptest) from the Go standard library.
package logtest
