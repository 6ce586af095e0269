// Package settings stores a user's preferences and profile.
package settings

import (
	"context"
	"errors"
	"strings"

	"github.com/kuitang/agent-dashboard/internal/collection"
	"github.com/kuitang/agent-dashboard/internal/errs"
	"github.com/kuitang/agent-dashboard/internal/kv"
	"github.com/kuitang/agent-dashboard/internal/obs"
)

const (
	StorageKey = "user_settings"
	ProfileKey = "user"
)

type Theme string

const (
	ThemeLight  Theme = "light"
	ThemeDark   Theme = "dark"
	ThemeSystem Theme = "system"
)

type Voice string

const (
	VoiceCalm         Voice = "calm"
	VoiceProfessional Voice = "professional"
	VoiceFriendly     Voice = "friendly"
)

// Themes and Voices list the accepted values in display order.
var (
	Themes = []Theme{ThemeLight, ThemeDark, ThemeSystem}
	Voices = []Voice{VoiceCalm, VoiceProfessional, VoiceFriendly}
)

// Settings is the per-user preference document.
type Settings struct {
	Theme         Theme `json:"theme"`
	Notifications bool  `json:"notifications"`
	SoundEnabled  bool  `json:"soundEnabled"`
	VoiceType     Voice `json:"voiceType"`
}

// Defaults is what a user sees before saving anything.
func Defaults() Settings {
	return Settings{Theme: ThemeSystem, Notifications: true, SoundEnabled: true, VoiceType: VoiceCalm}
}

// Validate rejects values outside the known themes and voices.
func (s Settings) Validate() error {
	var problems []string
	if !contains(Themes, s.Theme) {
		problems = append(problems, "unknown theme "+quote(string(s.Theme)))
	}
	if !contains(Voices, s.VoiceType) {
		problems = append(problems, "unknown voice type "+quote(string(s.VoiceType)))
	}
	if len(problems) > 0 {
		return errs.Invalidf("%s", strings.Join(problems, "; "))
	}
	return nil
}

// ResolveTheme returns the CSS class a theme applies: "dark" or "light".
// ThemeSystem follows the browser's prefers-color-scheme.
func ResolveTheme(theme Theme, prefersDark bool) string {
	switch theme {
	case ThemeDark:
		return "dark"
	case ThemeLight:
		return "light"
	default:
		if prefersDark {
			return "dark"
		}
		return "light"
	}
}

// stored mirrors Settings with optional fields so missing values fall back
// to defaults rather than zero values.
type stored struct {
	Theme         Theme `json:"theme"`
	Notifications *bool `json:"notifications"`
	SoundEnabled  *bool `json:"soundEnabled"`
	VoiceType     Voice `json:"voiceType"`
}

func (st stored) resolve() Settings {
	s := Defaults()
	if st.Theme != "" {
		s.Theme = st.Theme
	}
	if st.Notifications != nil {
		s.Notifications = *st.Notifications
	}
	if st.SoundEnabled != nil {
		s.SoundEnabled = *st.SoundEnabled
	}
	if st.VoiceType != "" {
		s.VoiceType = st.VoiceType
	}
	return s
}

// Profile is the session marker record: who is signed in.
type Profile struct {
	Email string `json:"email"`
	Name  string `json:"name"`
}

// Service reads and writes one user's settings and profile.
type Service struct {
	store  kv.Store
	policy collection.CorruptPolicy
}

// NewService returns a Service over store.
func NewService(store kv.Store, policy collection.CorruptPolicy) *Service {
	return &Service{store: store, policy: policy}
}

// Get returns the saved settings, or Defaults when none are saved.
func (s *Service) Get(ctx context.Context) (Settings, error) {
	var st stored
	found, err := kv.ReadJSON(ctx, s.store, StorageKey, &st)
	switch {
	case err == nil && !found:
		return Defaults(), nil
	case err == nil:
		return st.resolve(), nil
	case errors.Is(err, kv.ErrCorrupt) && s.policy == collection.PolicyReset:
		obs.From(ctx).Warn("settings_corrupt_reset", "pkg", "settings", "error", err)
		return Defaults(), nil
	case errors.Is(err, kv.ErrCorrupt):
		return Settings{}, errs.Wrap(errs.Internal, "stored settings are corrupt", err)
	default:
		return Settings{}, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
}

// Save validates and overwrites the settings document wholesale.
func (s *Service) Save(ctx context.Context, settings Settings) error {
	if err := settings.Validate(); err != nil {
		return err
	}
	if err := kv.WriteJSON(ctx, s.store, StorageKey, settings); err != nil {
		return errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return nil
}

// Profile returns the profile record and whether it exists. Under
// PolicyReset a corrupt record reads as absent, so EnsureProfile replaces it.
func (s *Service) Profile(ctx context.Context) (Profile, bool, error) {
	var p Profile
	found, err := kv.ReadJSON(ctx, s.store, ProfileKey, &p)
	switch {
	case err == nil:
		return p, found, nil
	case errors.Is(err, kv.ErrCorrupt) && s.policy == collection.PolicyReset:
		obs.From(ctx).Warn("profile_corrupt_reset", "pkg", "settings", "error", err)
		return Profile{}, false, nil
	case errors.Is(err, kv.ErrCorrupt):
		return Profile{}, false, errs.Wrap(errs.Internal, "stored profile is corrupt", err)
	default:
		return Profile{}, false, errs.Wrap(errs.Unavailable, "could not read profile", err)
	}
}

// EnsureProfile writes a profile for email if none exists yet.
func (s *Service) EnsureProfile(ctx context.Context, email string) (Profile, error) {
	p, found, err := s.Profile(ctx)
	if err != nil || found {
		return p, err
	}
	p = Profile{Email: email}
	if err := kv.WriteJSON(ctx, s.store, ProfileKey, p); err != nil {
		return Profile{}, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return p, nil
}

// SaveProfile updates the display name only. It is a no-op without a profile.
func (s *Service) SaveProfile(ctx context.Context, name string) (Profile, error) {
	p, found, err := s.Profile(ctx)
	if err != nil || !found {
		return p, err
	}
	p.Name = strings.TrimSpace(name)
	if err := kv.WriteJSON(ctx, s.store, ProfileKey, p); err != nil {
		return Profile{}, errs.Wrap(errs.Unavailable, "storage unavailable", err)
	}
	return p, nil
}

func contains[T comparable](list []T, v T) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

func quote(s string) string { return `"` + s + `"` }
