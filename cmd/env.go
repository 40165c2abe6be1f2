package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"

	"github.com/abhisek/edubot/internal/api"
	"github.com/abhisek/edubot/internal/config"
	"github.com/abhisek/edubot/internal/content"
	"github.com/abhisek/edubot/internal/lessons"
	"github.com/abhisek/edubot/internal/llm"
	"github.com/abhisek/edubot/internal/logging"
	"github.com/abhisek/edubot/internal/offline"
	"github.com/abhisek/edubot/internal/session"
	"github.com/abhisek/edubot/internal/store"
)

var errNotSignedIn = errors.New("not signed in: run `edubot login` first")

// env bundles what every command needs: settings, the log and the store.
type env struct {
	cfg   config.Config
	log   *logging.Logger
	store *store.Store
}

func openEnv(cmd *cobra.Command) (*env, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	dbPath, err := resolveDBPath(cfg)
	if err != nil {
		return nil, fmt.Errorf("resolve DB path: %w", err)
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	log.Debug("environment ready", "db", dbPath, "offline", cfg.Offline, "api_url", cfg.BaseURL())
	return &env{cfg: cfg, log: log, store: st}, nil
}

func (e *env) Close() {
	_ = e.store.Close()
	e.log.Sync()
}

// apiURL keys saved credentials and attempt events.
func (e *env) apiURL() string {
	if e.cfg.Offline {
		return offline.APIURL
	}
	return e.cfg.BaseURL()
}

// client builds the HTTP service. Requests are recorded in the event log.
func (e *env) client(tokens api.TokenSource) (*api.Client, error) {
	return api.New(api.Options{
		BaseURL: e.cfg.BaseURL(),
		Timeout: e.cfg.Timeout,
		Retries: 2,
		Tokens:  tokens,
		Events:  e.store.EventRepo(),
		Logger:  e.log,
	})
}

// restore loads the saved credential into sc. It reports false when none
// is saved or the saved one has expired.
func (e *env) restore(ctx context.Context, sc *session.SessionContext) (bool, error) {
	cred, err := e.store.CredentialRepo().Get(ctx, e.apiURL())
	if err != nil {
		return false, fmt.Errorf("load credential: %w", err)
	}
	if cred == nil {
		return false, nil
	}
	if err := sc.SetToken(cred.Token); err != nil {
		e.log.Warn("discarding unreadable credential", "error", err)
		return false, nil
	}
	if cred.Role != "" {
		sc.SetRole(content.ParseRole(cred.Role))
	}
	return sc.Authenticated(time.Now()), nil
}

// offlineService wires the local store to an LLM provider and signs sc in
// as the configured offline user.
func (e *env) offlineService(ctx context.Context, sc *session.SessionContext) (*offline.Service, error) {
	provider, err := llm.NewProvider(ctx, llm.Resolve(), e.store.EventRepo(), e.log)
	if err != nil {
		return nil, fmt.Errorf("LLM provider not configured: %w", err)
	}
	role := content.ParseRole(e.cfg.OfflineRole)
	svc, err := offline.New(offline.Options{
		Lessons:      e.store.LessonRepo(),
		Events:       e.store.EventRepo(),
		Generator:    lessons.NewGenerator(provider, lessons.DefaultConfig()),
		Owner:        e.cfg.OfflineUser,
		Role:         role,
		HistoryLimit: e.cfg.HistoryLimit,
		Logger:       e.log,
	})
	if err != nil {
		return nil, err
	}

	token, err := localToken(e.cfg.OfflineUser, role)
	if err != nil {
		return nil, err
	}
	if err := sc.SetToken(token); err != nil {
		return nil, err
	}
	return svc, nil
}

// localToken mints the unsigned credential that carries the offline user's
// identity. Nothing verifies it.
func localToken(email string, role content.Role) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub":   email,
		"email": email,
		"role":  string(role),
		"iat":   time.Now().Unix(),
	})
	s, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		return "", fmt.Errorf("mint local token: %w", err)
	}
	return s, nil
}

// service returns the ContentService for the configured mode. It needs a
// signed-in session when talking to the backend.
func (e *env) service(ctx context.Context, sc *session.SessionContext) (session.ContentService, error) {
	if e.cfg.Offline {
		return e.offlineService(ctx, sc)
	}
	ok, err := e.restore(ctx, sc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errNotSignedIn
	}
	return e.client(sc)
}
