package util

import "strings"

// NormalizeEmail baja a minúsculas y recorta un email para guardar y
// buscar. La comparación de emails es case-insensitive en todo el broker.
func NormalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// MaskEmail enmascara un email para logs, dejando apenas forma para
// correlacionar entradas.
func MaskEmail(s string) string {
	s = NormalizeEmail(s)
	i := strings.IndexByte(s, '@')
	if i <= 0 {
		if s == "" {
			return ""
		}
		if len(s) <= 3 {
			return "***"
		}
		return s[:1] + "…" + s[len(s)-1:]
	}
	user, dom := s[:i], s[i+1:]
	if len(user) > 1 {
		user = user[:1] + "…"
	}
	dparts := strings.Split(dom, ".")
	if len(dparts) > 0 && len(dparts[0]) > 1 {
		dparts[0] = dparts[0][:1] + "…"
	}
	return user + "@" + strings.Join(dparts, ".")
}
