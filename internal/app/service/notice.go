package service

type NoticeVariant string

const (
	NoticeDefault     NoticeVariant = "default"
	NoticeDestructive NoticeVariant = "destructive"
)

// Notice is a short user-facing message produced by a cart or checkout action.
type Notice struct {
	Title       string        `json:"title"`
	Description string        `json:"description,omitempty"`
	Variant     NoticeVariant `json:"variant"`
}

// Notifier pushes notices to a session's open connections.
type Notifier interface {
	Notify(sessionID string, notice Notice)
}

type noopNotifier struct{}

func (noopNotifier) Notify(string, Notice) {}

func infoNotice(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: NoticeDefault}
}

func errorNotice(title, description string) Notice {
	return Notice{Title: title, Description: description, Variant: NoticeDestructive}
}
