package session

import (
	"context"
	"errors"
	"sync"

	"github.com/berizaryad/maintenance-backend/internal/identity"
	"github.com/berizaryad/maintenance-backend/profile"
)

type State int

const (
	SignedOut State = iota
	Loading
	SignedIn
)

func (s State) String() string {
	return [...]string{"signed_out", "loading", "signed_in"}[s]
}

// Snapshot is a read-only view of the session. Profile is non-nil only in
// SignedIn.
type Snapshot struct {
	State   State
	Profile *profile.Profile
}

// ProfileStore is the slice of the profile repository the session needs.
type ProfileStore interface {
	GetByPhone(ctx context.Context, phone string) (*profile.Profile, error)
	Create(ctx context.Context, phone string) error
	UpdateFIO(ctx context.Context, phone, fio string) error
}

var ErrNotSignedIn = errors.New("not signed in")

// Store tracks the authenticated user's profile. State transitions happen
// only in reaction to provider notifications; SignIn/SignOut calls themselves
// never flip the state. A failed profile fetch lands in SignedOut rather than
// in a signed-in state with an unknown profile.
type Store struct {
	provider identity.Client
	profiles ProfileStore
	cancel   func()

	mu       sync.Mutex
	state    State
	profile  *profile.Profile
	token    string
	watchers map[int]chan Snapshot
	nextID   int
}

func NewStore(provider identity.Client, profiles ProfileStore) *Store {
	s := &Store{
		provider: provider,
		profiles: profiles,
		state:    SignedOut,
		watchers: make(map[int]chan Snapshot),
	}
	s.cancel = provider.Subscribe(s.handleEvent)
	return s
}

// Close unsubscribes from provider notifications.
func (s *Store) Close() {
	s.cancel()
}

// SignUp validates credentials locally, registers the account, and creates
// the profile row. The session state changes when the provider's signed-in
// notification arrives, not here.
func (s *Store) SignUp(ctx context.Context, phone, password string) error {
	if err := identity.ValidatePhone(phone); err != nil {
		return err
	}
	if err := identity.ValidatePassword(password); err != nil {
		return err
	}

	tok, err := s.provider.SignUp(ctx, identity.Identifier(phone), password)
	if err != nil {
		return err
	}
	if err := s.profiles.Create(ctx, phone); err != nil {
		return err
	}

	s.mu.Lock()
	s.token = tok.IDToken
	s.mu.Unlock()
	return nil
}

func (s *Store) SignIn(ctx context.Context, phone, password string) error {
	if err := identity.ValidatePhone(phone); err != nil {
		return err
	}
	if err := identity.ValidatePassword(password); err != nil {
		return err
	}

	tok, err := s.provider.SignIn(ctx, identity.Identifier(phone), password)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.token = tok.IDToken
	s.mu.Unlock()
	return nil
}

// Logout asks the provider to end the session. The transition to SignedOut is
// driven by the provider's notification; callers must not assume it has
// happened by the time this returns.
func (s *Store) Logout(ctx context.Context) error {
	s.mu.Lock()
	token := s.token
	s.mu.Unlock()
	return s.provider.SignOut(ctx, token)
}

// UpdateDisplayName writes the new name to the profile record and only then
// updates the in-memory session. On failure the session is left unchanged.
func (s *Store) UpdateDisplayName(ctx context.Context, name string) error {
	s.mu.Lock()
	if s.state != SignedIn {
		s.mu.Unlock()
		return ErrNotSignedIn
	}
	phone := s.profile.Phone
	s.mu.Unlock()

	if err := s.profiles.UpdateFIO(ctx, phone, name); err != nil {
		return err
	}

	s.mu.Lock()
	if s.state == SignedIn && s.profile.Phone == phone {
		p := *s.profile
		p.FIO.String = name
		p.FIO.Valid = name != ""
		s.profile = &p
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
	return nil
}

// Current returns the session snapshot.
func (s *Store) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Watch registers a watcher that receives a snapshot after every transition.
// Slow watchers miss intermediate snapshots rather than blocking the store.
func (s *Store) Watch() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 1)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers, id)
	}
}

func (s *Store) handleEvent(ev identity.Event) {
	if !ev.SignedIn {
		s.setState(SignedOut, nil)
		return
	}

	s.setState(Loading, nil)

	phone := identity.PhoneFromIdentifier(ev.AccountID)
	p, err := s.profiles.GetByPhone(context.Background(), phone)
	if errors.Is(err, profile.ErrNotFound) {
		// No stored profile yet; synthesize a default instead of failing.
		p = &profile.Profile{Phone: phone, Role: profile.DefaultRole}
	} else if err != nil {
		s.setState(SignedOut, nil)
		return
	}

	s.setState(SignedIn, p)
}

func (s *Store) setState(st State, p *profile.Profile) {
	s.mu.Lock()
	s.state = st
	s.profile = p
	if st == SignedOut {
		s.token = ""
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.broadcast(snap)
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{State: s.state, Profile: s.profile}
}

func (s *Store) broadcast(snap Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.watchers {
		select {
		case ch <- snap:
		default:
			// watcher still holds the previous snapshot; replace it
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}
