package ui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"goingviral/pkg/config"
	"goingviral/pkg/metrics"
)

func init() {
	SetColor(false)
}

func TestBatchTracker(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now := start
	b := NewBatchTracker(4)
	b.StartTime = start
	b.now = func() time.Time { return now }

	if got := b.Bar(8); got != "[░░░░░░░░] 0/4" {
		t.Errorf("Bar() = %q", got)
	}
	if b.ETA() != 0 {
		t.Error("ETA should be 0 before anything finished")
	}

	now = start.Add(10 * time.Second)
	b.Succeed()
	b.Fail()
	if b.Done() != 2 {
		t.Errorf("Done() = %d, want 2", b.Done())
	}
	if got := b.Bar(8); got != "[████░░░░] 2/4" {
		t.Errorf("Bar() = %q", got)
	}
	if eta := b.ETA(); eta != 10*time.Second {
		t.Errorf("ETA() = %v, want 10s", eta)
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{42 * time.Second, "42s"},
		{3*time.Minute + 5*time.Second, "3m5s"},
		{2*time.Hour + 15*time.Minute, "2h15m"},
	}
	for _, tt := range tests {
		if got := FormatDuration(tt.d); got != tt.want {
			t.Errorf("FormatDuration(%v) = %s, want %s", tt.d, got, tt.want)
		}
	}
}

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n    int64
		want string
	}{
		{0, "0"},
		{9999, "9999"},
		{12345, "12.3K"},
		{2_500_000, "2.5M"},
		{-20000, "-20.0K"},
	}
	for _, tt := range tests {
		if got := FormatCount(tt.n); got != tt.want {
			t.Errorf("FormatCount(%d) = %s, want %s", tt.n, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate kept = %q", got)
	}
	if got := Truncate("a  caption\nwith   breaks", 40); got != "a caption with breaks" {
		t.Errorf("Truncate should collapse whitespace, got %q", got)
	}
	if got := Truncate("sourdough🍞bread", 10); got != "sourdough…" {
		t.Errorf("Truncate(runes) = %q", got)
	}
}

func TestProgressDisplay(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 2, true)

	p.RunStatus("natgeo", "run-1", 3, 30, "RUNNING")
	p.FetchDone("natgeo", 12, 4*time.Second)
	p.FetchFailed("nasa", errors.New("Run failed with status: FAILED"))
	p.LogWarning("retrying %s", "dataset")
	p.Complete()

	out := buf.String()
	for _, want := range []string{
		"@natgeo run run-1 • RUNNING • check 3/30",
		"✓ @natgeo • 12 posts • 4s",
		"✗ @nasa • Run failed with status: FAILED",
		"⚠ retrying dataset",
		"Fetched 1/2 accounts",
		"1 fetches failed",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestProgressDisplayLine(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgressDisplay(&buf, 3, false)
	p.RunStatus("natgeo", "run-1", 1, 30, "READY")
	p.RunStatus("nasa", "run-2", 2, 30, "RUNNING")

	out := buf.String()
	if !strings.Contains(out, "fetching [") || !strings.Contains(out, "@nasa running 2/30") || !strings.Contains(out, "(+1)") {
		t.Errorf("unexpected progress line: %q", out)
	}
}

type recordingSender struct {
	titles []string
}

func (r *recordingSender) Send(title, message string) error {
	r.titles = append(r.titles, title)
	return errors.New("no display")
}

func TestNotifier(t *testing.T) {
	var buf bytes.Buffer
	sender := &recordingSender{}
	n := NewNotifierWithSender(&buf, sender)

	n.SendSuccess("Fetch complete", "34 posts for @homebaker")
	n.SendError("Fetch failed", "Timeout waiting for results")

	if len(sender.titles) != 2 {
		t.Errorf("expected 2 desktop notifications, got %d", len(sender.titles))
	}
	if !strings.Contains(buf.String(), "Fetch complete: 34 posts for @homebaker") {
		t.Errorf("console output missing success: %q", buf.String())
	}
}

func TestNotifierDisabled(t *testing.T) {
	var buf bytes.Buffer
	orig := Out
	Out = &buf
	defer func() { Out = orig }()

	n := NewNotifier(config.NotificationConfig{Enabled: false, OnComplete: true, OnError: true})
	n.SendSuccess("a", "b")
	n.SendError("c", "d")
	if buf.Len() != 0 {
		t.Errorf("disabled notifier wrote %q", buf.String())
	}

	n = NewNotifier(config.NotificationConfig{Enabled: true, OnComplete: false, OnError: true, NotificationType: "terminal"})
	n.SendSuccess("a", "b")
	n.SendError("c", "d")
	if strings.Contains(buf.String(), "a: b") || !strings.Contains(buf.String(), "c: d") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestEscaping(t *testing.T) {
	if got := appleScriptString(`say "hi" \o/`); got != `"say \"hi\" \\o/"` {
		t.Errorf("appleScriptString = %s", got)
	}
	if got := xmlEscape(`<b>&"`); got != "&lt;b&gt;&amp;&quot;" {
		t.Errorf("xmlEscape = %s", got)
	}
}

func TestRenderPosts(t *testing.T) {
	posts := []metrics.Post{
		{ID: "1", Type: metrics.TypeVideo, Caption: "first", Timestamp: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
			Metrics: metrics.Metrics{Views: 12345, Likes: 100, Engagement: 6.5}},
		{ID: "2", Type: metrics.TypePhoto, Caption: "second"},
	}

	out := RenderPosts(posts, 1)
	for _, want := range []string{"Views", "Caption", "2024-05-01", "12.3K", "6.5", "first"} {
		if !strings.Contains(out, want) {
			t.Errorf("table missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "second") {
		t.Error("limit should drop the second post")
	}

	summary := RenderSummary("natgeo", metrics.Summarize(posts))
	if !strings.Contains(summary, "@natgeo") || !strings.Contains(summary, "posts 2") {
		t.Errorf("unexpected summary:\n%s", summary)
	}
}
