// Package postgres implements the record-store interfaces of the service
// packages against PostgreSQL. One Store backs them all; methods are grouped
// by concern across users.go, events.go, campaigns.go and abtests.go.
package postgres

import (
	"context"
	"database/sql"

	"github.com/machinesoul11/ss-website-sub000/internal/abtest"
	"github.com/machinesoul11/ss-website-sub000/internal/campaign"
	"github.com/machinesoul11/ss-website-sub000/internal/deliverability"
	"github.com/machinesoul11/ss-website-sub000/internal/engagement"
	"github.com/machinesoul11/ss-website-sub000/internal/sendtime"
	"github.com/machinesoul11/ss-website-sub000/internal/webhook"
)

// Store is the Postgres-backed record store.
type Store struct{ db *sql.DB }

// New creates a Store over an open database handle.
func New(db *sql.DB) *Store { return &Store{db: db} }

// Ping verifies the connection.
func (s *Store) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

var (
	_ engagement.Store     = (*Store)(nil)
	_ campaign.Repository  = (*Store)(nil)
	_ campaign.UserStore   = (*Store)(nil)
	_ webhook.Store        = (*Store)(nil)
	_ deliverability.Store = (*Store)(nil)
	_ abtest.Store         = (*Store)(nil)
	_ sendtime.Store       = (*Store)(nil)
)

// nullable maps the empty string to SQL NULL so partial unique indexes on
// provider ids never collide on ''.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
