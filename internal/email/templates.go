package email

import (
	"fmt"
	"html"
	"strings"
	"time"

	"inspectbot/internal/config"
	"inspectbot/internal/models"
)

// Templates provides email template generation.
type Templates struct {
	cfg *config.Config
}

// NewTemplates creates a new templates instance.
func NewTemplates(cfg *config.Config) *Templates {
	return &Templates{cfg: cfg}
}

// baseHTML wraps content in a consistent HTML email template.
func (t *Templates) baseHTML(title, content string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>%s</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px; }
        .header { background: #b91c1c; color: white; padding: 20px; text-align: center; border-radius: 8px 8px 0 0; }
        .header h1 { margin: 0; font-size: 22px; }
        .content { background: #f9fafb; padding: 20px; border: 1px solid #e5e7eb; }
        .footer { background: #f3f4f6; padding: 15px; text-align: center; font-size: 12px; color: #6b7280; border-radius: 0 0 8px 8px; border: 1px solid #e5e7eb; border-top: none; }
        .info-box { background: white; border: 1px solid #e5e7eb; border-radius: 6px; padding: 15px; margin: 15px 0; }
        .label { font-weight: 600; color: #374151; }
        .error { color: #dc2626; }
        code { background: #e5e7eb; padding: 2px 6px; border-radius: 4px; font-family: monospace; }
    </style>
</head>
<body>
    <div class="header">
        <h1>%s</h1>
    </div>
    <div class="content">
        %s
    </div>
    <div class="footer">
        <p>This email was sent by %s</p>
        <p><a href="%s/status">%s/status</a></p>
    </div>
</body>
</html>`, html.EscapeString(title), html.EscapeString(t.cfg.SiteTitle), content,
		html.EscapeString(t.cfg.SiteTitle), html.EscapeString(t.cfg.BaseURL), html.EscapeString(t.cfg.BaseURL))
}

// CrawlFailed generates the alert sent when an acquisition pass stored nothing.
func (t *Templates) CrawlFailed(summary *models.CrawlSummary) (subject, htmlBody, textBody string) {
	subject = fmt.Sprintf("[%s] Crawl failed: %s", t.cfg.SiteTitle, summary.Message)

	started := summary.StartedAt.Format(time.RFC3339)
	duration := summary.Duration.Round(time.Millisecond).String()

	var failures strings.Builder
	for _, f := range summary.Failures {
		fmt.Fprintf(&failures, "<li class=\"error\">%s</li>\n", html.EscapeString(f))
	}
	if len(summary.Failures) == 0 {
		failures.WriteString("<li>No unit reported an error, but no records were written.</li>\n")
	}

	content := fmt.Sprintf(`
        <p>The latest crawl did not store any inspection data. The bot keeps answering from the previous data.</p>

        <div class="info-box">
            <p><span class="label">Run:</span> <code>%s</code></p>
            <p><span class="label">Started:</span> %s</p>
            <p><span class="label">Duration:</span> %s</p>
            <p><span class="label">Items / cycles / info written:</span> %d / %d / %d</p>
        </div>

        <p class="label">Failed units (%d):</p>
        <ul>
%s        </ul>
    `, html.EscapeString(summary.RunID), started, duration, summary.Items, summary.Cycles, summary.Info,
		len(summary.Failures), failures.String())

	htmlBody = t.baseHTML("Crawl failed", content)

	var text strings.Builder
	fmt.Fprintf(&text, "The latest crawl did not store any inspection data.\n\n")
	fmt.Fprintf(&text, "Run: %s\nStarted: %s\nDuration: %s\nItems / cycles / info written: %d / %d / %d\n\n",
		summary.RunID, started, duration, summary.Items, summary.Cycles, summary.Info)
	fmt.Fprintf(&text, "Failed units (%d):\n", len(summary.Failures))
	for _, f := range summary.Failures {
		fmt.Fprintf(&text, "- %s\n", f)
	}
	fmt.Fprintf(&text, "\nStatus: %s/status\n", t.cfg.BaseURL)
	textBody = text.String()

	return subject, htmlBody, textBody
}
