//go:build verifydebug

package verification

const exposeCodes = true
