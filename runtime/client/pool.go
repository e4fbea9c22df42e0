package client

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/baltrad/bdb-go/internal/storage"
	"github.com/baltrad/bdb-go/query/sqlgen"
	"github.com/baltrad/bdb-go/runtime/dberr"
)

// PoolConfig holds connection pool configuration.
type PoolConfig struct {
	// MaxOpenConns is the maximum number of open connections (0 = unlimited).
	MaxOpenConns int
	// MaxIdleConns is the maximum number of idle connections.
	MaxIdleConns int
	// ConnMaxLifetime is the maximum lifetime of a connection.
	ConnMaxLifetime time.Duration
	// ConnMaxIdleTime is the maximum idle time of a connection.
	ConnMaxIdleTime time.Duration
	// HealthCheckInterval is how often to ping the database (0 = never).
	HealthCheckInterval time.Duration
}

// DefaultPoolConfig returns the default pool configuration.
func DefaultPoolConfig() PoolConfig {
	return PoolConfig{
		MaxOpenConns:        25,
		MaxIdleConns:        5,
		ConnMaxLifetime:     30 * time.Minute,
		ConnMaxIdleTime:     10 * time.Minute,
		HealthCheckInterval: 1 * time.Minute,
	}
}

// PoolStats represents pool statistics.
type PoolStats struct {
	MaxOpenConnections int
	OpenConnections    int
	InUse              int
	Idle               int
	WaitCount          int64
	WaitDuration       time.Duration
	FailedHealthChecks int64
	LastHealthCheck    time.Time
}

// Pool hands out dedicated connections to one database. It is safe for
// concurrent use; the connections it returns are not.
type Pool struct {
	db      *sql.DB
	dialect sqlgen.Dialect
	storage storage.Storage
	config  PoolConfig

	mu              sync.RWMutex
	failedChecks    int64
	lastHealthCheck time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// OpenPool opens a pool for databaseURL
func OpenPool(databaseURL string, config PoolConfig, store storage.Storage) (*Pool, error) {
	d, dsn, err := ParseURL(databaseURL)
	if err != nil {
		return nil, err
	}
	return NewPool(d, dsn, config, store)
}

// NewPool opens a pool over the driver of dialect d
func NewPool(d sqlgen.Dialect, dsn string, config PoolConfig, store storage.Storage) (*Pool, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return NewPoolFromDB(d, db, config, store), nil
}

// NewPoolFromDB wraps an already opened database. A nil store keeps large
// objects in memory.
func NewPoolFromDB(d sqlgen.Dialect, db *sql.DB, config PoolConfig, store storage.Storage) *Pool {
	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	if store == nil {
		store = storage.NewMemoryStorage()
	}

	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		db:      db,
		dialect: d,
		storage: store,
		config:  config,
		ctx:     ctx,
		cancel:  cancel,
	}

	if config.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckLoop()
	}
	return p
}

// Dialect returns the dialect of the pooled database
func (p *Pool) Dialect() sqlgen.Dialect {
	return p.dialect
}

// Storage returns the large-object store shared by the pool's connections
func (p *Pool) Storage() storage.Storage {
	return p.storage
}

// Get checks out a dedicated connection. Close returns it to the pool.
func (p *Pool) Get(ctx context.Context) (*Connection, error) {
	conn, err := p.db.Conn(ctx)
	if err != nil {
		return nil, dberr.DB("checkout", err)
	}
	return newConnection(conn, p.dialect, p.storage), nil
}

// Stats returns current pool statistics.
func (p *Pool) Stats() PoolStats {
	p.mu.RLock()
	defer p.mu.RUnlock()

	dbStats := p.db.Stats()
	return PoolStats{
		MaxOpenConnections: p.config.MaxOpenConns,
		OpenConnections:    dbStats.OpenConnections,
		InUse:              dbStats.InUse,
		Idle:               dbStats.Idle,
		WaitCount:          dbStats.WaitCount,
		WaitDuration:       dbStats.WaitDuration,
		FailedHealthChecks: p.failedChecks,
		LastHealthCheck:    p.lastHealthCheck,
	}
}

// HealthCheck pings the database.
func (p *Pool) HealthCheck(ctx context.Context) error {
	p.mu.Lock()
	p.lastHealthCheck = time.Now()
	p.mu.Unlock()

	if err := p.db.PingContext(ctx); err != nil {
		p.mu.Lock()
		p.failedChecks++
		p.mu.Unlock()
		return dberr.DB("health check", err)
	}
	return nil
}

func (p *Pool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(p.ctx, 5*time.Second)
			_ = p.HealthCheck(ctx)
			cancel()
		}
	}
}

// Close stops the health checks and closes every connection.
func (p *Pool) Close() error {
	p.cancel()
	p.wg.Wait()
	return p.db.Close()
}
