package service

import (
	"context"
	"io"
	"time"

	"github.com/thebackstage/backstage/internal/model"
	"github.com/thebackstage/backstage/internal/platform/soundcloud"
	"github.com/thebackstage/backstage/internal/platform/spotify"
	"github.com/thebackstage/backstage/internal/repository"
)

// In-memory repository fakes shared across the service tests. Each fake
// implements only what the tests exercise; unsupported calls return not-found.

type fakeGateRepo struct {
	gates     map[string]*model.Gate // keyed by id
	createErr error
}

func newFakeGateRepo(gates ...*model.Gate) *fakeGateRepo {
	repo := &fakeGateRepo{gates: map[string]*model.Gate{}}
	for _, g := range gates {
		repo.gates[g.ID] = g
	}
	return repo
}

func (r *fakeGateRepo) Create(gate *model.Gate) error {
	if r.createErr != nil {
		return r.createErr
	}
	for _, g := range r.gates {
		if g.Slug == gate.Slug {
			return repository.ErrDuplicateSlug
		}
	}
	r.gates[gate.ID] = gate
	return nil
}

func (r *fakeGateRepo) ByID(id string) (*model.Gate, error) {
	g, ok := r.gates[id]
	if !ok {
		return nil, repository.ErrGateNotFound
	}
	return g, nil
}

func (r *fakeGateRepo) BySlug(slug string) (*model.Gate, error) {
	for _, g := range r.gates {
		if g.Slug == slug {
			return g, nil
		}
	}
	return nil, repository.ErrGateNotFound
}

func (r *fakeGateRepo) ByUser(userID string) ([]*model.Gate, error) {
	var out []*model.Gate
	for _, g := range r.gates {
		if g.UserID == userID {
			out = append(out, g)
		}
	}
	return out, nil
}

func (r *fakeGateRepo) CountActiveByUser(userID string) (int, error) {
	count := 0
	for _, g := range r.gates {
		if g.UserID == userID && g.Active {
			count++
		}
	}
	return count, nil
}

func (r *fakeGateRepo) Update(gate *model.Gate) error {
	if _, ok := r.gates[gate.ID]; !ok {
		return repository.ErrGateNotFound
	}
	r.gates[gate.ID] = gate
	return nil
}

type fakeSubmissionRepo struct {
	subs map[string]*model.Submission
}

func newFakeSubmissionRepo(subs ...*model.Submission) *fakeSubmissionRepo {
	repo := &fakeSubmissionRepo{subs: map[string]*model.Submission{}}
	for _, s := range subs {
		repo.subs[s.ID] = s
	}
	return repo
}

func (r *fakeSubmissionRepo) Create(sub *model.Submission) error {
	r.subs[sub.ID] = sub
	return nil
}

func (r *fakeSubmissionRepo) ByID(id string) (*model.Submission, error) {
	s, ok := r.subs[id]
	if !ok {
		return nil, repository.ErrSubmissionNotFound
	}
	return s, nil
}

func (r *fakeSubmissionRepo) ByGateAndEmail(gateID, email string) (*model.Submission, error) {
	for _, s := range r.subs {
		if s.GateID == gateID && s.Email == email {
			return s, nil
		}
	}
	return nil, repository.ErrSubmissionNotFound
}

func (r *fakeSubmissionRepo) ListByGate(gateID string) ([]*model.Submission, error) {
	var out []*model.Submission
	for _, s := range r.subs {
		if s.GateID == gateID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (r *fakeSubmissionRepo) CountByGate(gateID string) (int, error) {
	subs, _ := r.ListByGate(gateID)
	return len(subs), nil
}

func (r *fakeSubmissionRepo) MarkRepostVerified(id string) error {
	s, ok := r.subs[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	s.SoundcloudRepostVerified = true
	return nil
}

func (r *fakeSubmissionRepo) MarkFollowVerified(id string) error {
	s, ok := r.subs[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	s.SoundcloudFollowVerified = true
	return nil
}

func (r *fakeSubmissionRepo) MarkSpotifyConnected(id string) error {
	s, ok := r.subs[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	s.SpotifyConnected = true
	return nil
}

func (r *fakeSubmissionRepo) MarkDownloadCompleted(id string) error {
	s, ok := r.subs[id]
	if !ok {
		return repository.ErrSubmissionNotFound
	}
	now := time.Now()
	s.DownloadCompletedAt = &now
	return nil
}

type fakeContactRepo struct {
	contacts map[string]*model.Contact // keyed by userID + "/" + email
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{contacts: map[string]*model.Contact{}}
}

func (r *fakeContactRepo) Upsert(contact *model.Contact) (bool, error) {
	key := contact.UserID + "/" + contact.Email
	_, exists := r.contacts[key]
	r.contacts[key] = contact
	return !exists, nil
}

func (r *fakeContactRepo) ByUser(userID string) ([]*model.Contact, error) {
	var out []*model.Contact
	for _, c := range r.contacts {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeContactRepo) CountByUser(userID string) (int, error) {
	contacts, _ := r.ByUser(userID)
	return len(contacts), nil
}

type fakeEventRepo struct {
	counts map[string]int64 // keyed by gateID + "/" + eventType
	err    error
}

func newFakeEventRepo() *fakeEventRepo {
	return &fakeEventRepo{counts: map[string]int64{}}
}

func (r *fakeEventRepo) Increment(gateID, eventType string) error {
	if r.err != nil {
		return r.err
	}
	r.counts[gateID+"/"+eventType]++
	return nil
}

func (r *fakeEventRepo) Totals(gateID string) (map[string]int64, error) {
	if r.err != nil {
		return nil, r.err
	}
	totals := map[string]int64{}
	for _, eventType := range []string{model.EventTypeView, model.EventTypeSubmit, model.EventTypeDownload} {
		if count, ok := r.counts[gateID+"/"+eventType]; ok {
			totals[eventType] = count
		}
	}
	return totals, nil
}

type fakeStateRepo struct {
	states map[string]*model.OAuthState // keyed by state token
}

func newFakeStateRepo() *fakeStateRepo {
	return &fakeStateRepo{states: map[string]*model.OAuthState{}}
}

func (r *fakeStateRepo) Create(state *model.OAuthState) error {
	r.states[state.State] = state
	return nil
}

func (r *fakeStateRepo) Consume(stateToken string) (*model.OAuthState, error) {
	state, ok := r.states[stateToken]
	if !ok {
		return nil, repository.ErrStateNotFound
	}
	if state.IsUsed() {
		return nil, repository.ErrStateUsed
	}
	now := time.Now()
	state.UsedAt = &now
	if state.IsExpired() {
		return nil, repository.ErrStateExpired
	}
	return state, nil
}

type fakeDownloadTokenRepo struct {
	tokens map[string]*model.DownloadToken // keyed by token string
}

func newFakeDownloadTokenRepo() *fakeDownloadTokenRepo {
	return &fakeDownloadTokenRepo{tokens: map[string]*model.DownloadToken{}}
}

func (r *fakeDownloadTokenRepo) Create(token *model.DownloadToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeDownloadTokenRepo) Consume(tokenString string) (*model.DownloadToken, error) {
	token, ok := r.tokens[tokenString]
	if !ok {
		return nil, repository.ErrDownloadTokenNotFound
	}
	if token.IsUsed() {
		return nil, repository.ErrDownloadTokenUsed
	}
	if token.IsExpired() {
		return nil, repository.ErrDownloadTokenExpired
	}
	now := time.Now()
	token.UsedAt = &now
	return token, nil
}

type fakeConnectionRepo struct {
	conns []*model.Connection
}

func (r *fakeConnectionRepo) Upsert(conn *model.Connection) error {
	for i, existing := range r.conns {
		sameSub := conn.SubmissionID != nil && existing.SubmissionID != nil && *conn.SubmissionID == *existing.SubmissionID
		sameUser := conn.UserID != nil && existing.UserID != nil && *conn.UserID == *existing.UserID
		if existing.Provider == conn.Provider && (sameSub || sameUser) {
			r.conns[i] = conn
			return nil
		}
	}
	r.conns = append(r.conns, conn)
	return nil
}

func (r *fakeConnectionRepo) BySubmissionAndProvider(submissionID, provider string) (*model.Connection, error) {
	for _, c := range r.conns {
		if c.Provider == provider && c.SubmissionID != nil && *c.SubmissionID == submissionID {
			return c, nil
		}
	}
	return nil, repository.ErrConnectionNotFound
}

func (r *fakeConnectionRepo) ByUserAndProvider(userID, provider string) (*model.Connection, error) {
	for _, c := range r.conns {
		if c.Provider == provider && c.UserID != nil && *c.UserID == userID {
			return c, nil
		}
	}
	return nil, repository.ErrConnectionNotFound
}

func (r *fakeConnectionRepo) AutosaveDue(provider string, since time.Time) ([]*model.Connection, error) {
	var out []*model.Connection
	for _, c := range r.conns {
		if c.Provider != provider || !c.AutosaveEnabled {
			continue
		}
		if c.LastAutosaveAt == nil || c.LastAutosaveAt.Before(since) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeConnectionRepo) UpdateTokens(conn *model.Connection) error {
	return nil
}

func (r *fakeConnectionRepo) TouchAutosave(id string) error {
	for _, c := range r.conns {
		if c.ID == id {
			now := time.Now()
			c.LastAutosaveAt = &now
		}
	}
	return nil
}

type fakeUserRepo struct {
	users map[string]*model.User // keyed by id
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	repo := &fakeUserRepo{users: map[string]*model.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (r *fakeUserRepo) Create(user *model.User) error {
	for _, u := range r.users {
		if u.Email == user.Email {
			return repository.ErrDuplicateEmail
		}
	}
	r.users[user.ID] = user
	return nil
}

func (r *fakeUserRepo) ByID(id string) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	return u, nil
}

func (r *fakeUserRepo) ByEmail(email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (r *fakeUserRepo) Update(user *model.User) error {
	if _, ok := r.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	r.users[user.ID] = user
	return nil
}

type fakeTokenRepo struct {
	tokens map[string]*model.Token // keyed by token string
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: map[string]*model.Token{}}
}

func (r *fakeTokenRepo) Create(token *model.Token) error {
	if token.ID == "" {
		token.ID = token.Token
	}
	r.tokens[token.Token] = token
	return nil
}

func (r *fakeTokenRepo) ConsumeToken(tokenString string) (*model.Token, error) {
	token, ok := r.tokens[tokenString]
	if !ok || token.IsUsed() || token.IsExpired() {
		return nil, repository.ErrTokenNotFound
	}
	now := time.Now()
	token.UsedAt = &now
	return token, nil
}

func (r *fakeTokenRepo) DeleteByUserAndType(userID, tokenType string) error {
	for key, token := range r.tokens {
		if token.UserID == userID && token.Type == tokenType {
			delete(r.tokens, key)
		}
	}
	return nil
}

type fakeSubscriptionRepo struct {
	subs map[string]*model.Subscription // keyed by user id
}

func newFakeSubscriptionRepo() *fakeSubscriptionRepo {
	return &fakeSubscriptionRepo{subs: map[string]*model.Subscription{}}
}

func (r *fakeSubscriptionRepo) Create(sub *model.Subscription) error {
	r.subs[sub.UserID] = sub
	return nil
}

func (r *fakeSubscriptionRepo) ByUserID(userID string) (*model.Subscription, error) {
	sub, ok := r.subs[userID]
	if !ok {
		return nil, repository.ErrSubscriptionNotFound
	}
	return sub, nil
}

func (r *fakeSubscriptionRepo) ByProviderSubscriptionID(providerSubID string) (*model.Subscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderSubscriptionID != nil && *sub.ProviderSubscriptionID == providerSubID {
			return sub, nil
		}
	}
	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) ByProviderCustomerID(providerCustomerID string) (*model.Subscription, error) {
	for _, sub := range r.subs {
		if sub.ProviderCustomerID != nil && *sub.ProviderCustomerID == providerCustomerID {
			return sub, nil
		}
	}
	return nil, repository.ErrSubscriptionNotFound
}

func (r *fakeSubscriptionRepo) Update(sub *model.Subscription) error {
	r.subs[sub.UserID] = sub
	return nil
}

// fakeStorage records saves and hands out deterministic URLs.
type fakeStorage struct {
	saved map[string]bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: map[string]bool{}}
}

func (s *fakeStorage) Save(path string, file io.Reader) error {
	s.saved[path] = true
	return nil
}

func (s *fakeStorage) Delete(path string) error {
	delete(s.saved, path)
	return nil
}

func (s *fakeStorage) PresignedURL(path string, expiry time.Duration) (string, error) {
	return "https://files.test/" + path + "?signed", nil
}

// fakeSoundcloud fulfils SoundcloudAPI with scriptable outcomes.
type fakeSoundcloud struct {
	profile   soundcloud.Profile
	repostErr error
	followErr error
	following bool
	reposted  []string
	followed  []string
}

func (f *fakeSoundcloud) Me(ctx context.Context) (*soundcloud.Profile, error) {
	return &f.profile, nil
}

func (f *fakeSoundcloud) Repost(ctx context.Context, trackID string) error {
	if f.repostErr != nil {
		return f.repostErr
	}
	f.reposted = append(f.reposted, trackID)
	return nil
}

func (f *fakeSoundcloud) Follow(ctx context.Context, userID string) error {
	if f.followErr != nil {
		return f.followErr
	}
	f.followed = append(f.followed, userID)
	return nil
}

func (f *fakeSoundcloud) IsFollowing(ctx context.Context, userID string) (bool, error) {
	return f.following, nil
}

// fakeSpotify fulfils SpotifyAPI.
type fakeSpotify struct {
	profile spotify.Profile
	saveErr error
	saved   []string
}

func (f *fakeSpotify) Me(ctx context.Context) (*spotify.Profile, error) {
	return &f.profile, nil
}

func (f *fakeSpotify) SaveTracks(ctx context.Context, ids []string) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, ids...)
	return nil
}

// devEmailService builds an EmailService that logs instead of sending.
func devEmailService() *EmailService {
	return NewEmailService("", "test@backstage.test", "", "http://localhost:8080", "The Backstage", true)
}
