package bridge

import "strings"

const DefaultTitleFormat = "[Gotify→{app_name}] - {title}"

// Compose renders the title template and returns it together with the full
// message text (title, blank line, body).
func Compose(format, appName, title, body string) (formattedTitle, full string) {
	if format == "" {
		format = DefaultTitleFormat
	}
	formattedTitle = strings.NewReplacer("{app_name}", appName, "{title}", title).Replace(format)
	return formattedTitle, formattedTitle + "\n\n" + body
}
