package verification

import "strings"

// MaskEmail keeps the first two characters of the local part and the domain,
// e.g. "alice@gmail.com" becomes "al***@gmail.com".
func MaskEmail(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 {
		return "***"
	}

	local := []rune(email[:at])
	if len(local) > 2 {
		local = local[:2]
	}
	return string(local) + "***" + email[at:]
}
