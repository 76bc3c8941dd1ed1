// Package normalisers turns downloaded payloads into domain records.
// Each sub-package handles one payload format.
package normalisers
