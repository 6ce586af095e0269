package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/kuitang/agent-dashboard/internal/settings"
	"github.com/kuitang/agent-dashboard/internal/workspace"
)

func newSettingsCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Preference and profile commands",
	}

	cmd.AddCommand(newSettingsShowCmd(a))
	cmd.AddCommand(newSettingsSetCmd(a))

	return cmd
}

func settingsView(ctx context.Context, ws *workspace.Workspace) (any, error) {
	s, err := ws.Settings.Get(ctx)
	if err != nil {
		return nil, err
	}
	p, _, err := ws.Settings.Profile(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{"settings": s, "profile": p}, nil
}

func newSettingsShowCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show settings and profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withWorkspace(cmd, settingsView)
		},
	}
}

func newSettingsSetCmd(a *App) *cobra.Command {
	var theme, voice, name string
	var notifications, sound bool

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change only the given settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			return a.withWorkspace(cmd, func(ctx context.Context, ws *workspace.Workspace) (any, error) {
				s, err := ws.Settings.Get(ctx)
				if err != nil {
					return nil, err
				}
				if flags.Changed("theme") {
					s.Theme = settings.Theme(theme)
				}
				if flags.Changed("voice") {
					s.VoiceType = settings.Voice(voice)
				}
				if flags.Changed("notifications") {
					s.Notifications = notifications
				}
				if flags.Changed("sound") {
					s.SoundEnabled = sound
				}
				if err := ws.Settings.Save(ctx, s); err != nil {
					return nil, err
				}
				if flags.Changed("name") {
					if _, err := ws.Settings.SaveProfile(ctx, name); err != nil {
						return nil, err
					}
				}
				return settingsView(ctx, ws)
			})
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "light|dark|system")
	cmd.Flags().StringVar(&voice, "voice", "", "calm|professional|friendly")
	cmd.Flags().BoolVar(&notifications, "notifications", true, "Enable notifications")
	cmd.Flags().BoolVar(&sound, "sound", true, "Enable sound")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	return cmd
}
