package cliui

import "github.com/charmbracelet/glamour"

// ReplyWidth is the wrap width for rendered assistant replies.
const ReplyWidth = 80

// RenderMarkdown renders content with glamour for the terminal. On failure
// content comes back unchanged together with the error, so callers can
// print it either way.
func RenderMarkdown(content string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(ReplyWidth),
	)
	if err != nil {
		return content, err
	}

	out, err := r.Render(content)
	if err != nil {
		return content, err
	}
	return out, nil
}
