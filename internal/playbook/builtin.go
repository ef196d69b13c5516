package playbook

// Builtins returns the built-in playbook set. Built-ins ship disabled; the
// management surface toggles them on. They are seeded into the store on
// first run and cannot be deleted, only disabled.
func Builtins() []Playbook {
	cooldown := func(m uint) *uint { return &m }
	boolPtr := func(b bool) *bool { return &b }
	minutes := func(m uint) *uint { return &m }

	return []Playbook{
		{
			ID:          "daily-standup",
			Name:        "Daily Standup",
			Description: "Automatically generate a summary of your work at 9 AM on weekdays",
			Enabled:     false,
			Triggers: Triggers{
				TimeTrigger{Cron: "0 9 * * 1-5", Description: "Every weekday at 9:00 AM"},
			},
			Actions: Actions{
				SummarizeAction{
					TimeframeMinutes: 1440,
					Focus:            FocusActionItems,
					Output:           OutputNotification,
				},
			},
			CooldownMinutes: cooldown(60),
			IsBuiltin:       true,
			Icon:            "calendar",
			Color:           "#3B82F6",
		},
		{
			ID:          "customer-call",
			Name:        "Customer Call",
			Description: "Focus on action items when joining Zoom or Google Meet",
			Enabled:     false,
			Triggers: Triggers{
				AppOpenTrigger{AppName: "zoom"},
			},
			Actions: Actions{
				FocusModeAction{
					Enabled:              true,
					DurationMinutes:      minutes(60),
					AllowedApps:          []string{"zoom", "chrome"},
					SilenceNotifications: boolPtr(true),
				},
				NotifyAction{
					Title:      "Customer Call Mode",
					Message:    "Focus mode enabled. Action items will be summarized after the call.",
					Persistent: boolPtr(false),
				},
			},
			IsBuiltin: true,
			Icon:      "video",
			Color:     "#10B981",
		},
		{
			ID:          "deep-work",
			Name:        "Deep Work",
			Description: "Block distractions during focus time",
			Enabled:     false,
			Triggers: Triggers{
				ContextTrigger{
					TimeRange:  "09:00-12:00",
					DaysOfWeek: []int{1, 2, 3, 4, 5},
				},
			},
			Actions: Actions{
				FocusModeAction{
					Enabled:              true,
					DurationMinutes:      minutes(180),
					AllowedApps:          []string{"code", "cursor", "vscode", "terminal"},
					SilenceNotifications: boolPtr(true),
				},
			},
			CooldownMinutes: cooldown(240),
			IsBuiltin:       true,
			Icon:            "target",
			Color:           "#8B5CF6",
		},
	}
}
