package email

import (
	"strings"
	"testing"
	"time"

	"inspectbot/internal/models"
)

func failedSummary() *models.CrawlSummary {
	return &models.CrawlSummary{
		RunID:     "run-42",
		StartedAt: time.Date(2026, 3, 2, 4, 0, 0, 0, time.UTC),
		Duration:  1500 * time.Millisecond,
		Failures: []string{
			"items 식품: fetch: unexpected status 503",
			"cycles 축산/<식육포장처리업>: element not found",
		},
		Status:  models.CrawlStatusFailed,
		Message: "데이터 저장 실패",
	}
}

func TestNewTemplates(t *testing.T) {
	cfg := enabledConfig()
	if tmpl := NewTemplates(cfg); tmpl.cfg != cfg {
		t.Error("NewTemplates() did not keep the config")
	}
}

func TestTemplates_BaseHTML(t *testing.T) {
	tmpl := NewTemplates(enabledConfig())
	out := tmpl.baseHTML("Title", "<p>body</p>")

	for _, want := range []string{
		"<!DOCTYPE html>",
		"<title>Title</title>",
		"<h1>검사 안내</h1>",
		"<p>body</p>",
		"https://bot.example.com/status",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("baseHTML() missing %q", want)
		}
	}
}

func TestTemplates_BaseHTML_EscapesHTML(t *testing.T) {
	cfg := enabledConfig()
	cfg.SiteTitle = "<script>alert(1)</script>"
	out := NewTemplates(cfg).baseHTML("<b>t</b>", "")

	if strings.Contains(out, "<script>") || strings.Contains(out, "<b>t</b>") {
		t.Errorf("baseHTML() did not escape input:\n%s", out)
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("baseHTML() missing escaped site title")
	}
}

func TestTemplates_CrawlFailed(t *testing.T) {
	tmpl := NewTemplates(enabledConfig())
	subject, htmlBody, textBody := tmpl.CrawlFailed(failedSummary())

	if subject != "[검사 안내] Crawl failed: 데이터 저장 실패" {
		t.Errorf("subject = %q", subject)
	}

	for _, want := range []string{
		"run-42",
		"2026-03-02T04:00:00Z",
		"1.5s",
		"Failed units (2)",
		"unexpected status 503",
		"&lt;식육포장처리업&gt;",
	} {
		if !strings.Contains(htmlBody, want) {
			t.Errorf("html body missing %q", want)
		}
	}
	if strings.Contains(htmlBody, "<식육포장처리업>") {
		t.Error("html body contains unescaped failure text")
	}

	for _, want := range []string{
		"Run: run-42",
		"Items / cycles / info written: 0 / 0 / 0",
		"- cycles 축산/<식육포장처리업>: element not found",
		"Status: https://bot.example.com/status",
	} {
		if !strings.Contains(textBody, want) {
			t.Errorf("text body missing %q\n%s", want, textBody)
		}
	}
}

func TestTemplates_CrawlFailed_NoFailures(t *testing.T) {
	s := failedSummary()
	s.Failures = nil

	_, htmlBody, textBody := NewTemplates(enabledConfig()).CrawlFailed(s)
	if !strings.Contains(htmlBody, "No unit reported an error") {
		t.Error("html body missing empty-failures note")
	}
	if !strings.Contains(textBody, "Failed units (0):") {
		t.Errorf("text body = %q", textBody)
	}
}
