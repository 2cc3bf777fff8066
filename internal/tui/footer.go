package tui

// renderFooter renders the key binding help footer at full terminal width.
// A pending status message replaces the hint until the next key press.
func renderFooter(app *App) string {
	width := app.width
	if width <= 0 {
		width = 80
	}
	if app.status != nil {
		style := StyleGreen
		if app.status.IsError {
			style = StyleError
		}
		return style.Width(width).Render(sanitize(app.status.String()))
	}
	text := "? for help"
	if app.showHelp {
		text = helpText
	}
	return StyleDim.Width(width).Render(text)
}
