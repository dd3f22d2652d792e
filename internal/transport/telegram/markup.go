package telegram

import "encoding/json"

type copyTextButton struct {
	Text     string `json:"text"`
	CopyText struct {
		Text string `json:"text"`
	} `json:"copy_text"`
}

type inlineKeyboard struct {
	InlineKeyboard [][]copyTextButton `json:"inline_keyboard"`
}

// CopyCodeMarkup returns the JSON reply_markup for a single inline button
// that copies code to the clipboard. Empty code yields "".
func CopyCodeMarkup(code string) string {
	if code == "" {
		return ""
	}
	btn := copyTextButton{Text: code}
	btn.CopyText.Text = code
	b, err := json.Marshal(inlineKeyboard{InlineKeyboard: [][]copyTextButton{{btn}}})
	if err != nil {
		return ""
	}
	return string(b)
}

// TruncateRunes caps s to n characters.
func TruncateRunes(s string, n int) string {
	if n <= 0 {
		return s
	}
	rs := []rune(s)
	if len(rs) <= n {
		return s
	}
	if n <= 3 {
		return string(rs[:n])
	}
	return string(rs[:n-3]) + "..."
}
