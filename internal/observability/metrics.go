package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrors counts Redis errors by command.
	RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fruitmap_redis_errors_total",
		Help: "Total number of Redis errors by command",
	}, []string{"command"})

	// CacheLookups counts cache-aside lookups by key family and result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fruitmap_cache_lookups_total",
		Help: "Cache-aside lookups by key family and result",
	}, []string{"family", "result"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fruitmap_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// GeoScannedTrees records how many active trees a geospatial query had to scan.
	GeoScannedTrees = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fruitmap_geo_scanned_trees",
		Help:    "Number of active trees scanned per geospatial query",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"query"})

	// GeoUnparseableLocations counts stored locations skipped during geospatial filtering.
	GeoUnparseableLocations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fruitmap_geo_unparseable_locations_total",
		Help: "Stored tree locations that could not be parsed as a GeoJSON Point",
	})

	// AuthFailures counts rejected logins and token checks by reason.
	AuthFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fruitmap_auth_failures_total",
		Help: "Authentication failures by reason",
	}, []string{"reason"})

	// TreeEvents counts published live map events by type.
	TreeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fruitmap_tree_events_total",
		Help: "Tree events published to the live map feed",
	}, []string{"type"})

	// WebSocketConnections is the gauge of live map subscribers.
	WebSocketConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "fruitmap_websocket_connections",
		Help: "Number of active live map WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped because a client could not keep up.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fruitmap_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"reason"})
)

const queryStartKey = "fruitmap:query_start"

// DatabaseMetrics is a GORM plugin recording query latency per operation and table.
type DatabaseMetrics struct{}

// NewDatabaseMetrics returns a new DatabaseMetrics plugin.
func NewDatabaseMetrics() *DatabaseMetrics {
	return &DatabaseMetrics{}
}

// Name implements gorm.Plugin.
func (*DatabaseMetrics) Name() string {
	return "fruitmap:metrics"
}

// Initialize registers before/after callbacks for every operation.
func (m *DatabaseMetrics) Initialize(db *gorm.DB) error {
	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(name string, fn func(*gorm.DB)) error
		after  func(name string, fn func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}

	for _, h := range hooks {
		op := h.op
		if err := h.before("fruitmap:metrics_before_"+op, startTimer); err != nil {
			return err
		}
		if err := h.after("fruitmap:metrics_after_"+op, func(tx *gorm.DB) { m.observe(tx, op) }); err != nil {
			return err
		}
	}
	return nil
}

func startTimer(tx *gorm.DB) {
	tx.InstanceSet(queryStartKey, time.Now())
}

func (m *DatabaseMetrics) observe(tx *gorm.DB, op string) {
	v, ok := tx.InstanceGet(queryStartKey)
	if !ok {
		return
	}
	start, ok := v.(time.Time)
	if !ok {
		return
	}
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}
	m.ObserveQuery(op, table, start)
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(time.Since(start).Seconds())
}
