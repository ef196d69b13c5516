// Package playbook defines the playbook data model: automation rules that
// pair triggers (time, app focus, keywords, context) with side-effecting
// actions (notifications, summaries, focus mode, pipes, tags, webhooks).
//
// Trigger and Action are closed sum types: an interface plus a fixed set of
// variants, serialized with a JSON type tag ("type": "app_open", etc.). Every
// consumer (matcher, executor, CLI output) switches exhaustively over the
// variants; adding a variant means touching every switch, which is the point.
//
// The engine treats playbooks as read-only. Definitions are created and
// updated through the management surface and persisted by internal/store;
// this package only describes their shape and validates it.
package playbook
