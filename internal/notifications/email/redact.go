package email

import "strings"

// RedactEmail masks an address for logging: "john@gmail.com" becomes
// "j***@gmail.com". Strings without an "@" are masked entirely.
func RedactEmail(email string) string {
	if email == "" {
		return ""
	}

	local, domain, ok := strings.Cut(email, "@")
	if !ok {
		return "***"
	}
	if local == "" {
		return "***@" + domain
	}
	return local[:1] + "***@" + domain
}

// RedactAll applies RedactEmail to every address in list.
func RedactAll(list []string) []string {
	out := make([]string, len(list))
	for i, addr := range list {
		out[i] = RedactEmail(addr)
	}
	return out
}
