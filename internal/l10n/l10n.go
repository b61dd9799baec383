// Package l10n translates user facing strings of the command line tool.
// Log messages are not translated.
package l10n

import (
	"fmt"

	"github.com/snapcore/go-gettext"
)

var (
	domain = gettext.TextDomain{Name: "vyos-userdata"}
	locale = domain.UserLocale()
)

// T localizes simple strings.
func T(str string, vars ...interface{}) string {
	translation := locale.Gettext(str)
	if len(vars) > 0 {
		translation = fmt.Sprintf(translation, vars...)
	}
	return translation
}

// TN localizes strings with plurals.
func TN(singular, plural string, n uint32, vars ...interface{}) string {
	translation := locale.NGettext(singular, plural, n)
	if len(vars) > 0 {
		translation = fmt.Sprintf(translation, vars...)
	}
	return translation
}
