//go:build !verifydebug

package verification

// exposeCodes gates plaintext code echoing at compile time.
const exposeCodes = false
