/*
Package pgerrors defines the sentinel error kinds shared across pgraft's
components, so callers can branch on failure cause with errors.Is instead of
parsing messages.
*/
package pgerrors
