package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"postscope/pkg/jobs"
)

// NotificationSender delivers a desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// LinuxNotificationSender uses notify-send
type LinuxNotificationSender struct{}

func (l *LinuxNotificationSender) Send(title, message string) error {
	return exec.Command("notify-send", title, message).Run()
}

// MacOSNotificationSender uses osascript
type MacOSNotificationSender struct{}

func (m *MacOSNotificationSender) Send(title, message string) error {
	script := fmt.Sprintf(`display notification %q with title %q`, message, title)
	return exec.Command("osascript", "-e", script).Run()
}

// WindowsNotificationSender uses a PowerShell toast
type WindowsNotificationSender struct{}

func (w *WindowsNotificationSender) Send(title, message string) error {
	escape := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	script := fmt.Sprintf(`
		[Windows.UI.Notifications.ToastNotificationManager, Windows.UI.Notifications, ContentType = WindowsRuntime] | Out-Null
		[Windows.Data.Xml.Dom.XmlDocument, Windows.Data.Xml.Dom.XmlDocument, ContentType = WindowsRuntime] | Out-Null
		$doc = [Windows.Data.Xml.Dom.XmlDocument]::new()
		$doc.LoadXml('<toast><visual><binding template="ToastText02"><text id="1">%s</text><text id="2">%s</text></binding></visual></toast>')
		$toast = [Windows.UI.Notifications.ToastNotification]::new($doc)
		[Windows.UI.Notifications.ToastNotificationManager]::CreateToastNotifier("postscope").Show($toast)
	`, escape.Replace(title), escape.Replace(message))
	return exec.Command("powershell", "-NoProfile", "-NonInteractive", "-Command", script).Run()
}

// Notifier announces finished jobs on the console and the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier picks a sender for the current platform. Unsupported
// platforms only print.
func NewNotifier() *Notifier {
	var sender NotificationSender
	switch runtime.GOOS {
	case "linux":
		sender = &LinuxNotificationSender{}
	case "darwin":
		sender = &MacOSNotificationSender{}
	case "windows":
		sender = &WindowsNotificationSender{}
	}
	return &Notifier{sender: sender}
}

// NewNotifierWithSender uses sender, which may be nil
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// JobFinished announces a terminal job. Desktop errors are ignored.
func (n *Notifier) JobFinished(snap jobs.Snapshot) {
	title, message := JobNotification(snap)
	if snap.State == jobs.StateCompleted {
		fmt.Fprintf(Output, "\n%s: %s\n", Green(title), message)
	} else {
		fmt.Fprintf(Output, "\n%s: %s\n", Red(title), Red(message))
	}
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// JobNotification builds the title and body for a finished job
func JobNotification(snap jobs.Snapshot) (string, string) {
	if snap.State == jobs.StateCompleted {
		return "postscope: @" + snap.Username, fmt.Sprintf("Collected %d posts", snap.PostCount)
	}
	msg := snap.Error
	if msg == "" {
		msg = "Job did not complete"
	}
	return "postscope: @" + snap.Username + " failed", msg
}
