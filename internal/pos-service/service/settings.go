package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/radieske/numbers-lottery-pos/internal/lottery"
)

const maxPreferenceKey = 128

// Settings mantém o snapshot da configuração.
// Toda escrita vai para o banco e em seguida recarrega o snapshot; Reload relê explicitamente.
type Settings struct {
	store SettingsStore
	kind  lottery.PolicyKind
	log   *zap.Logger
	hooks Hooks
	cost  int

	mu  sync.RWMutex
	cur lottery.Settings
}

func NewSettings(store SettingsStore, kind lottery.PolicyKind, log *zap.Logger, hooks Hooks) *Settings {
	return &Settings{
		store: store,
		kind:  kind,
		log:   log,
		hooks: hooks,
		cost:  bcrypt.DefaultCost,
		cur: lottery.Settings{
			Policy:   lottery.PrizePolicy{Kind: kind, UnitPrize: lottery.DefaultUnitPrize},
			MinStake: 1,
		},
	}
}

// Reload relê a linha de configuração e troca o snapshot
func (s *Settings) Reload(ctx context.Context) (lottery.Settings, error) {
	cur, err := s.store.Load(ctx)
	if err != nil {
		return lottery.Settings{}, fail(s.log, s.hooks, "settings_reload", err)
	}
	cur.Policy.Kind = s.kind

	s.mu.Lock()
	s.cur = cur
	s.mu.Unlock()
	return cur, nil
}

func (s *Settings) Current() lottery.Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur
}

// ComputePrize é compute_prize sobre o snapshot atual
func (s *Settings) ComputePrize(stake int64) int64 {
	return s.Current().Policy.Compute(stake)
}

// SettingsUpdate aplica só os campos presentes
type SettingsUpdate struct {
	UnitPrize *int64
	MinStake  *int64
	Theme     *string
}

func (s *Settings) Update(ctx context.Context, u SettingsUpdate) (lottery.Settings, error) {
	cur, err := s.Reload(ctx)
	if err != nil {
		return lottery.Settings{}, err
	}

	unit, minStake, theme := cur.Policy.UnitPrize, cur.MinStake, cur.Theme
	if u.UnitPrize != nil {
		unit = *u.UnitPrize
	}
	if u.MinStake != nil {
		minStake = *u.MinStake
	}
	if u.Theme != nil {
		theme = strings.TrimSpace(*u.Theme)
	}

	if unit <= 0 || unit > lottery.MaxUnitPrize {
		return lottery.Settings{}, fmt.Errorf("%w: unit prize must be between 1 and %d", lottery.ErrInvalidSetting, lottery.MaxUnitPrize)
	}
	if minStake < 1 || minStake > lottery.MaxStake {
		return lottery.Settings{}, fmt.Errorf("%w: min stake must be between 1 and %d", lottery.ErrInvalidSetting, lottery.MaxStake)
	}
	if theme == "" {
		return lottery.Settings{}, fmt.Errorf("%w: theme is empty", lottery.ErrInvalidSetting)
	}

	if err := s.store.Update(ctx, unit, minStake, theme); err != nil {
		return lottery.Settings{}, fail(s.log, s.hooks, "settings_update", err)
	}
	s.log.Info("settings updated",
		zap.Int64("unit_prize", unit),
		zap.Int64("min_stake", minStake),
		zap.String("theme", theme),
	)
	return s.Reload(ctx)
}

// Login confere a credencial; sem hash configurado o acesso é livre.
// Devolve true quando a verificação foi dispensada.
func (s *Settings) Login(ctx context.Context, password string) (bypassed bool, err error) {
	cur, err := s.Reload(ctx)
	if err != nil {
		return false, err
	}
	if !cur.LoginRequired() {
		return true, nil
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*cur.CredentialHash), []byte(password)); err != nil {
		return false, lottery.ErrCredentialMismatch
	}
	return false, nil
}

// ChangeCredential troca a senha. Exige a atual quando existe hash.
func (s *Settings) ChangeCredential(ctx context.Context, current, next, confirm string) error {
	cur, err := s.Reload(ctx)
	if err != nil {
		return err
	}
	if cur.LoginRequired() {
		if err := bcrypt.CompareHashAndPassword([]byte(*cur.CredentialHash), []byte(current)); err != nil {
			return fmt.Errorf("%w: current credential is wrong", lottery.ErrCredentialMismatch)
		}
	}
	if strings.TrimSpace(next) == "" {
		return fmt.Errorf("%w: new credential is empty", lottery.ErrCredentialMismatch)
	}
	if next != confirm {
		return fmt.Errorf("%w: confirmation does not match", lottery.ErrCredentialMismatch)
	}
	// limite do bcrypt
	if len(next) > 72 {
		return fmt.Errorf("%w: new credential is longer than 72 bytes", lottery.ErrCredentialMismatch)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return fmt.Errorf("hash credential: %w", err)
	}
	h := string(hash)
	if err := s.store.SetCredentialHash(ctx, &h); err != nil {
		return fail(s.log, s.hooks, "credential_change", err)
	}
	s.log.Info("credential changed")
	_, err = s.Reload(ctx)
	return err
}

func (s *Settings) Preference(ctx context.Context, key string) (json.RawMessage, error) {
	if err := validPreferenceKey(key); err != nil {
		return nil, err
	}
	v, ok, err := s.store.GetPreference(ctx, key)
	if err != nil {
		return nil, fail(s.log, s.hooks, "preference_get", err)
	}
	if !ok {
		return nil, fmt.Errorf("preference %q: %w", key, lottery.ErrNotFound)
	}
	return v, nil
}

func (s *Settings) SetPreference(ctx context.Context, key string, value json.RawMessage) error {
	if err := validPreferenceKey(key); err != nil {
		return err
	}
	if len(value) == 0 || !json.Valid(value) {
		return fmt.Errorf("%w: preference %q is not valid JSON", lottery.ErrInvalidSetting, key)
	}
	if err := s.store.PutPreference(ctx, key, value); err != nil {
		return fail(s.log, s.hooks, "preference_put", err)
	}
	return nil
}

func (s *Settings) Preferences(ctx context.Context) (map[string]json.RawMessage, error) {
	all, err := s.store.ListPreferences(ctx)
	if err != nil {
		return nil, fail(s.log, s.hooks, "preference_list", err)
	}
	return all, nil
}

func validPreferenceKey(key string) error {
	if strings.TrimSpace(key) == "" || len(key) > maxPreferenceKey {
		return fmt.Errorf("%w: preference key %q", lottery.ErrInvalidSetting, key)
	}
	return nil
}
