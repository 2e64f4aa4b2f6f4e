package service

import (
	"math"
	"time"

	"github.com/ChrisAbdo/event-manager/internal/logger"
	"github.com/ChrisAbdo/event-manager/internal/metrics"

	"golang.org/x/crypto/bcrypt"
)

// Options carries the tunables of the service layer, usually from config.Config.
type Options struct {
	JWTSecret  []byte
	JWTIssuer  string
	AccessTTL  time.Duration
	RefreshTTL time.Duration

	MaxLoginAttempts int
	BcryptCost       int

	CacheSize int
	CacheTTL  time.Duration

	RevokedRetention time.Duration

	Metrics *metrics.Metrics
	Log     *logger.Logger
}

func (o Options) withDefaults() Options {
	if o.JWTIssuer == "" {
		o.JWTIssuer = "event-manager"
	}
	if o.AccessTTL <= 0 {
		o.AccessTTL = 30 * time.Minute
	}
	if o.RefreshTTL <= 0 {
		o.RefreshTTL = 7 * 24 * time.Hour
	}
	if o.MaxLoginAttempts <= 0 {
		o.MaxLoginAttempts = 5
	}
	if o.BcryptCost < bcrypt.MinCost || o.BcryptCost > bcrypt.MaxCost {
		o.BcryptCost = bcrypt.DefaultCost
	}
	if o.RevokedRetention < 0 {
		o.RevokedRetention = 0
	}
	o.Log = logOrNop(o.Log)
	return o
}

// ListParams selects one page of users. Page is 1-based.
type ListParams struct {
	Page int
	Size int
}

const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MaxPageSize     = 100

	// MaxPage keeps (page-1)*size within a 32-bit OFFSET.
	MaxPage = math.MaxInt32 / MaxPageSize
)

// normalize fills defaults and clamps page and size.
func (p ListParams) normalize() ListParams {
	switch {
	case p.Page < 1:
		p.Page = DefaultPage
	case p.Page > MaxPage:
		p.Page = MaxPage
	}
	switch {
	case p.Size <= 0:
		p.Size = DefaultPageSize
	case p.Size > MaxPageSize:
		p.Size = MaxPageSize
	}
	return p
}

func (p ListParams) offset() int {
	return (p.Page - 1) * p.Size
}
