// Package auth provides credential strategies for outbound API calls.
package auth
