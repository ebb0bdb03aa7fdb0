package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// SessionPolicy tunes the session-authority subsystem. It lives in portal.yml
// so operators can adjust thresholds without a redeploy.
type SessionPolicy struct {
	// SessionHours is the inactivity age after which a session is prunable.
	SessionHours int `mapstructure:"sessionHours"`
	// PruneProbability is the per-request chance of running an inline prune pass.
	PruneProbability float64 `mapstructure:"pruneProbability"`
	// AutoKickHours is the default threshold offered when auto-kick is enabled.
	AutoKickHours int `mapstructure:"autoKickHours"`
}

func (p SessionPolicy) MaxAge() time.Duration {
	return time.Duration(p.SessionHours) * time.Hour
}

func (p SessionPolicy) AutoKickAge() time.Duration {
	return time.Duration(p.AutoKickHours) * time.Hour
}

func DefaultSessionPolicy() SessionPolicy {
	return SessionPolicy{
		SessionHours:     8,
		PruneProbability: 0.01,
		AutoKickHours:    8,
	}
}

// SessionPolicyHolder hands out the current policy and hot-reloads it on file change.
type SessionPolicyHolder struct {
	current atomic.Value // holds SessionPolicy
}

func NewSessionPolicyHolder() (*SessionPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("portal")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/customer-portal")
	v.AddConfigPath(".")

	v.SetEnvPrefix("PORTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultSessionPolicy()
	v.SetDefault("session.sessionHours", defaults.SessionHours)
	v.SetDefault("session.pruneProbability", defaults.PruneProbability)
	v.SetDefault("session.autoKickHours", defaults.AutoKickHours)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var policy SessionPolicy
	if err := v.UnmarshalKey("session", &policy); err != nil {
		return nil, err
	}
	if err := validateSessionPolicy(policy); err != nil {
		return nil, err
	}

	holder := &SessionPolicyHolder{}
	holder.current.Store(policy)

	if v.ConfigFileUsed() == "" {
		return holder, nil
	}

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated SessionPolicy
		if err := v.UnmarshalKey("session", &updated); err != nil {
			log.Printf("[session-policy] reload failed: %v", err)
			return
		}
		if err := validateSessionPolicy(updated); err != nil {
			log.Printf("[session-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[session-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// NewStaticSessionPolicyHolder wraps a fixed policy, with no file watching.
func NewStaticSessionPolicyHolder(policy SessionPolicy) *SessionPolicyHolder {
	holder := &SessionPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *SessionPolicyHolder) Get() SessionPolicy {
	return h.current.Load().(SessionPolicy)
}

func validateSessionPolicy(p SessionPolicy) error {
	if p.SessionHours <= 0 {
		return errors.New("session.sessionHours must be positive")
	}
	if p.PruneProbability < 0 || p.PruneProbability > 1 {
		return errors.New("session.pruneProbability must be within [0,1]")
	}
	if p.AutoKickHours <= 0 {
		return errors.New("session.autoKickHours must be positive")
	}
	return nil
}
