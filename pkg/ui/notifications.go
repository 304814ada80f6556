package ui

import (
	"fmt"
	"io"
	"os/exec"
	"runtime"
	"strings"

	"goingviral/pkg/config"
)

// AppTitle is shown as the sender of desktop notifications.
const AppTitle = "Am I Going Viral"

// NotificationSender interface for platform-specific notification implementations
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender sends notifications on Linux using notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", "--app-name", AppTitle, title, message).Run()
}

// MacOSNotificationSender sends notifications on macOS using osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %s with title %s`, appleScriptString(message), appleScriptString(title))
	return exec.Command("osascript", "-e", script).Run()
}

func appleScriptString(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}

// WindowsNotificationSender sends notifications on Windows using PowerShell
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$xml = @"
<toast>
	<visual>
		<binding template="ToastText02">
			<text id="1">%s</text>
			<text id="2">%s</text>
		</binding>
	</visual>
</toast>
"@
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml($xml)
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("%s").Show($toast)
	`, xmlEscape(title), xmlEscape(message), AppTitle)

	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

var xmlReplacer = strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;", `"`, "&quot;")

func xmlEscape(s string) string {
	return xmlReplacer.Replace(s)
}

// Notifier reports fetch outcomes on the console and, when enabled, on
// the desktop
type Notifier struct {
	sender     NotificationSender
	out        io.Writer
	onComplete bool
	onError    bool
}

// NewNotifier creates a Notifier from the notification settings
func NewNotifier(cfg config.NotificationConfig) *Notifier {
	n := &Notifier{out: Out, onComplete: cfg.OnComplete, onError: cfg.OnError}
	if !cfg.Enabled || strings.EqualFold(cfg.NotificationType, "none") {
		n.onComplete, n.onError = false, false
		return n
	}
	if strings.EqualFold(cfg.NotificationType, "desktop") {
		n.sender = platformSender()
	}
	return n
}

// NewNotifierWithSender creates a Notifier writing to out and sending through s
func NewNotifierWithSender(out io.Writer, s NotificationSender) *Notifier {
	return &Notifier{sender: s, out: out, onComplete: true, onError: true}
}

func platformSender() NotificationSender {
	switch runtime.GOOS {
	case "linux":
		return &LinuxNotificationSender{}
	case "darwin":
		return &MacOSNotificationSender{}
	case "windows":
		return &WindowsNotificationSender{}
	default:
		return nil
	}
}

func (n *Notifier) send(title, message string) {
	if n.sender != nil {
		// Desktop notifications are best effort.
		_ = n.sender.Send(title, message)
	}
}

// SendSuccess reports a finished fetch
func (n *Notifier) SendSuccess(title, message string) {
	if !n.onComplete {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Green(title), Green(message))
	n.send(title, message)
}

// SendError reports a failed fetch
func (n *Notifier) SendError(title, message string) {
	if !n.onError {
		return
	}
	fmt.Fprintf(n.out, "\n%s: %s\n", Red(title), Red(message))
	n.send(title, message)
}
