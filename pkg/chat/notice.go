package chat

// NoticeKind classifies a Notice.
type NoticeKind int

const (
	// NoticeDelta carries a payload just appended to the assistant message.
	// None is raised once Close, Shutdown or the next SendMessage has
	// returned: the reply's session is cancelled before they return, and
	// cancelling waits for a delivery already in progress.
	NoticeDelta NoticeKind = iota

	// NoticeTurnDone marks the end of a streamed reply.
	NoticeTurnDone

	// NoticeTurnFailed reports a failed reply; Err is set and any partial
	// assistant message has been kept.
	NoticeTurnFailed

	// NoticeAuthRequired reports an operation refused for lack of a
	// logged-in user.
	NoticeAuthRequired

	// NoticeUnread reports a contextual chat started while hidden.
	NoticeUnread
)

// Notice is a user-facing event raised by the Orchestrator.
type Notice struct {
	Kind NoticeKind
	Text string
	Err  error
}

// Notifier receives Notices. Notify is never called with the Orchestrator's
// lock held, so it may call back into the Orchestrator.
type Notifier interface {
	Notify(n Notice)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(n Notice)

func (f NotifierFunc) Notify(n Notice) {
	f(n)
}

type nopNotifier struct{}

func (nopNotifier) Notify(Notice) {}
