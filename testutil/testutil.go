/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

// Package testutil provides assertion helpers shared by the package tests.
package testutil

type tHelper interface {
	Helper()
}
