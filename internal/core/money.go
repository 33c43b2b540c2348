// Package core provides the card usage domain: records, won formatting and
// the calendar titles shown on each screen.
package core

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// WonSign prefixes every amount shown to the user.
const WonSign = "₩"

// Grouping follows the ko-KR decimal style regardless of the UI locale,
// since amounts are always in won.
var wonPrinter = message.NewPrinter(language.Korean)

// FormatWon renders a whole-won amount with thousands separators.
//
// Examples:
//
//	FormatWon(123456) -> "₩123,456"
//	FormatWon(0)      -> "₩0"
//	FormatWon(-1500)  -> "₩-1,500"
func FormatWon(amount int64) string {
	return WonSign + wonPrinter.Sprintf("%d", amount)
}
