// Package action defines the narrow back-end contracts the engine dispatches
// playbook actions through, plus the default implementations that ship with
// the daemon: an HTTP webhook caller and slog-backed stand-ins for desktop
// integrations (notifications, focus mode, recording control).
//
// A nil back-end is not a crash: the executor converts it into a failed
// action result, so a daemon wired without, say, a pipe manager still runs
// every other action in a playbook.
package action
