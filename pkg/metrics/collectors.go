package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
)

// RedisPoolCollector exposes the connection pool of the redis client that
// backs the session store.
type RedisPoolCollector struct {
	client *redis.Client

	hits       *prometheus.Desc
	misses     *prometheus.Desc
	timeouts   *prometheus.Desc
	totalConns *prometheus.Desc
	idleConns  *prometheus.Desc
}

func NewRedisPoolCollector(client *redis.Client) *RedisPoolCollector {
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc("chat_session_redis_"+name, help, nil, nil)
	}
	return &RedisPoolCollector{
		client:     client,
		hits:       desc("pool_hits_total", "Free connection found in the pool"),
		misses:     desc("pool_misses_total", "Free connection NOT found in the pool"),
		timeouts:   desc("pool_timeouts_total", "Pool wait timeouts"),
		totalConns: desc("pool_total_connections", "Connections in the pool"),
		idleConns:  desc("pool_idle_connections", "Idle connections in the pool"),
	}
}

// Describe implements prometheus.Collector
func (c *RedisPoolCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.hits
	ch <- c.misses
	ch <- c.timeouts
	ch <- c.totalConns
	ch <- c.idleConns
}

// Collect implements prometheus.Collector
func (c *RedisPoolCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.client.PoolStats()

	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.misses, prometheus.CounterValue, float64(stats.Misses))
	ch <- prometheus.MustNewConstMetric(c.timeouts, prometheus.CounterValue, float64(stats.Timeouts))
	ch <- prometheus.MustNewConstMetric(c.totalConns, prometheus.GaugeValue, float64(stats.TotalConns))
	ch <- prometheus.MustNewConstMetric(c.idleConns, prometheus.GaugeValue, float64(stats.IdleConns))
}

// RegisterRedisPool registers the pool collector on the default registry.
// Registering the same client twice is a no-op.
func RegisterRedisPool(client *redis.Client) error {
	err := prometheus.Register(NewRedisPoolCollector(client))
	if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
		return nil
	}
	return err
}
