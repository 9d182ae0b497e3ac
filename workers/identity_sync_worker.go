package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"loro-platform/services"
	"loro-platform/utils"
)

// IdentityStore receives the users pulled from the identity provider.
type IdentityStore interface {
	UpsertIdentities(ctx context.Context, recs []services.IdentityRecord) (int, error)
}

type identityChanges struct {
	Users []services.IdentityRecord `json:"users"`
}

// IdentitySyncWorker mirrors users from the identity provider into the local users table.
// It polls `GET <url>?since=<RFC3339>` with a bearer service token.
type IdentitySyncWorker struct {
	store        IdentityStore
	endpoint     string
	serviceToken string
	interval     time.Duration
	httpClient   *http.Client
	since        time.Time
}

func NewIdentitySyncWorker(store IdentityStore, endpoint, serviceToken string, interval time.Duration) *IdentitySyncWorker {
	if interval <= 0 {
		interval = time.Minute
	}
	return &IdentitySyncWorker{
		store:        store,
		endpoint:     endpoint,
		serviceToken: serviceToken,
		interval:     interval,
		httpClient:   utils.HTTPClient,
	}
}

// Start runs the worker until ctx is cancelled.
func (w *IdentitySyncWorker) Start(ctx context.Context) {
	log.Printf("🔁 [SYNC] identity sync worker started (every %s)", w.interval)
	go w.run(ctx)
}

func (w *IdentitySyncWorker) run(ctx context.Context) {
	// first pass backfills from the epoch
	if _, err := w.SyncOnce(ctx); err != nil {
		log.Warnf("⚠️ [SYNC] initial identity sync failed: %v", err)
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if _, err := w.SyncOnce(ctx); err != nil {
				log.Errorf("❌ [SYNC] identity sync failed: %v", err)
			}
		case <-ctx.Done():
			log.Println("⏹️ [SYNC] identity sync worker stopped")
			return
		}
	}
}

// SyncOnce pulls one batch of changes and advances the cursor on success.
func (w *IdentitySyncWorker) SyncOnce(ctx context.Context) (int, error) {
	u, err := url.Parse(w.endpoint)
	if err != nil {
		return 0, fmt.Errorf("invalid identity sync url %q: %w", w.endpoint, err)
	}
	q := u.Query()
	q.Set("since", w.since.UTC().Format(time.RFC3339))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Authorization", "Bearer "+w.serviceToken)
	req.Header.Set("Accept", "application/json")

	started := time.Now().UTC()
	resp, err := w.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("identity provider request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return 0, fmt.Errorf("identity provider returned %d: %s", resp.StatusCode, body)
	}

	var changes identityChanges
	if err := json.NewDecoder(resp.Body).Decode(&changes); err != nil {
		return 0, fmt.Errorf("decode identity changes: %w", err)
	}
	if len(changes.Users) == 0 {
		w.since = started
		log.Debugf("[SYNC] no identity changes")
		return 0, nil
	}

	n, err := w.store.UpsertIdentities(ctx, changes.Users)
	if err != nil {
		return 0, err
	}

	next := started
	for _, r := range changes.Users {
		if r.UpdatedAt.After(next) {
			next = r.UpdatedAt.UTC()
		}
	}
	w.since = next
	log.Printf("✅ [SYNC] upserted %d of %d identity record(s)", n, len(changes.Users))
	return n, nil
}
